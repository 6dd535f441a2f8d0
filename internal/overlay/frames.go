package overlay

// Frames is the terminal animation: three sticks of incense with smoke
// curling upward. Every frame has the same dimensions.
var Frames = [][]string{
	{
		"   (    )   (  ",
		"    )  (     ) ",
		"   (    )   (  ",
		"    *   *   *  ",
		"    |   |   |  ",
		"    |   |   |  ",
		"  ▄▄█▄▄▄█▄▄▄█▄▄",
		"  ▀▀▀▀▀▀▀▀▀▀▀▀▀",
	},
	{
		"    )  (     ) ",
		"   (    )   (  ",
		"    )  (     ) ",
		"    *   *   *  ",
		"    |   |   |  ",
		"    |   |   |  ",
		"  ▄▄█▄▄▄█▄▄▄█▄▄",
		"  ▀▀▀▀▀▀▀▀▀▀▀▀▀",
	},
	{
		"  (    )   (   ",
		"   )  (     )  ",
		"    (   )    ( ",
		"    *   *   *  ",
		"    |   |   |  ",
		"    |   |   |  ",
		"  ▄▄█▄▄▄█▄▄▄█▄▄",
		"  ▀▀▀▀▀▀▀▀▀▀▀▀▀",
	},
	{
		"   )  (     )  ",
		"  (    )   (   ",
		"   )  (     )  ",
		"    *   *   *  ",
		"    |   |   |  ",
		"    |   |   |  ",
		"  ▄▄█▄▄▄█▄▄▄█▄▄",
		"  ▀▀▀▀▀▀▀▀▀▀▀▀▀",
	},
}

// Frame returns animation frame i, looping forever.
func Frame(i int) []string {
	if i < 0 {
		i = -i
	}
	return Frames[i%len(Frames)]
}

// Idle is shown when nothing is burning.
var Idle = []string{
	"               ",
	"               ",
	"               ",
	"               ",
	"    |   |   |  ",
	"    |   |   |  ",
	"  ▄▄█▄▄▄█▄▄▄█▄▄",
	"  ▀▀▀▀▀▀▀▀▀▀▀▀▀",
}
