// Package button maps hardware key presses from a Linux input device to
// offering actions, the way a watch maps its side button and crown.
package button

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	evdev "github.com/holoplot/go-evdev"
)

// Action is what a button press asks the view to do.
type Action int

const (
	Offer Action = iota + 1
	Extinguish
)

func (a Action) String() string {
	switch a {
	case Offer:
		return "offer"
	case Extinguish:
		return "extinguish"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Bindings maps evdev key codes to actions.
type Bindings map[evdev.EvCode]Action

// Default key codes: Enter offers, Escape extinguishes.
const (
	DefaultOfferCode      = int(evdev.KEY_ENTER)
	DefaultExtinguishCode = int(evdev.KEY_ESC)
)

// DefaultBindings binds the default offer and extinguish keys.
func DefaultBindings() Bindings {
	return BindingsFromCodes(DefaultOfferCode, DefaultExtinguishCode)
}

// BindingsFromCodes builds bindings from raw key codes; a zero code leaves
// the action unbound.
func BindingsFromCodes(offer, extinguish int) Bindings {
	b := Bindings{}
	if offer > 0 {
		b[evdev.EvCode(offer)] = Offer
	}
	if extinguish > 0 {
		b[evdev.EvCode(extinguish)] = Extinguish
	}
	return b
}

type eventReader interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// Listener reads key events from one input device.
type Listener struct {
	dev      eventReader
	name     string
	bindings Bindings
	log      *slog.Logger
}

// Open opens the input device at path, e.g. /dev/input/event3. Empty
// bindings select DefaultBindings.
func Open(path string, bindings Bindings, log *slog.Logger) (*Listener, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(bindings) == 0 {
		bindings = DefaultBindings()
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", path, err)
	}
	name, err := dev.Name()
	if err != nil {
		name = path
	}
	log.Info("button device opened", "path", path, "name", name)
	return &Listener{dev: dev, name: name, bindings: bindings, log: log}, nil
}

// Name returns the device name reported by the kernel.
func (l *Listener) Name() string { return l.name }

// Action returns the action for an event, if it is a bound key press.
// Releases and autorepeat are ignored.
func (l *Listener) Action(ev *evdev.InputEvent) (Action, bool) {
	if ev == nil || ev.Type != evdev.EV_KEY || ev.Value != 1 {
		return 0, false
	}
	a, ok := l.bindings[ev.Code]
	return a, ok
}

// Run delivers actions to fn until ctx is cancelled or the device fails.
// The device is closed when Run returns.
func (l *Listener) Run(ctx context.Context, fn func(Action)) error {
	stop := context.AfterFunc(ctx, func() { l.dev.Close() })
	defer func() {
		if stop() {
			l.dev.Close()
		}
	}()

	for {
		ev, err := l.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", l.name, err)
		}
		if a, ok := l.Action(ev); ok {
			l.log.Debug("button pressed", "code", ev.Code, "action", a)
			fn(a)
		}
	}
}
