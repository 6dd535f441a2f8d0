// Command incense watches wrist motion for the incense-offering gesture
// and lets the incense burn for a while when it sees one.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
