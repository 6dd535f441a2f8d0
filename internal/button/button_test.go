package button

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	mu     sync.Mutex
	events []*evdev.InputEvent
	closed chan struct{}
	once   sync.Once
}

func newFakeDevice(events ...*evdev.InputEvent) *fakeDevice {
	return &fakeDevice{events: events, closed: make(chan struct{})}
}

func (f *fakeDevice) ReadOne() (*evdev.InputEvent, error) {
	f.mu.Lock()
	if len(f.events) > 0 {
		ev := f.events[0]
		f.events = f.events[1:]
		f.mu.Unlock()
		return ev, nil
	}
	f.mu.Unlock()
	<-f.closed
	return nil, io.ErrClosedPipe
}

func (f *fakeDevice) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func key(code evdev.EvCode, value int32) *evdev.InputEvent {
	return &evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

func TestActionFiltering(t *testing.T) {
	l := &Listener{bindings: DefaultBindings()}

	a, ok := l.Action(key(evdev.KEY_ENTER, 1))
	require.True(t, ok)
	assert.Equal(t, Offer, a)

	a, ok = l.Action(key(evdev.KEY_ESC, 1))
	require.True(t, ok)
	assert.Equal(t, Extinguish, a)

	_, ok = l.Action(key(evdev.KEY_ENTER, 0))
	assert.False(t, ok, "release")
	_, ok = l.Action(key(evdev.KEY_ENTER, 2))
	assert.False(t, ok, "autorepeat")
	_, ok = l.Action(key(evdev.KEY_A, 1))
	assert.False(t, ok, "unbound key")
	_, ok = l.Action(&evdev.InputEvent{Type: evdev.EV_SYN})
	assert.False(t, ok)
	_, ok = l.Action(nil)
	assert.False(t, ok)
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	dev := newFakeDevice(
		key(evdev.KEY_ENTER, 1),
		key(evdev.KEY_ENTER, 0),
		key(evdev.KEY_ESC, 1),
	)
	l := &Listener{dev: dev, name: "fake", bindings: DefaultBindings(), log: slogDiscard()}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var got []Action
	errc := make(chan error, 1)
	go func() {
		errc <- l.Run(ctx, func(a Action) {
			mu.Lock()
			got = append(got, a)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	err := <-errc
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []Action{Offer, Extinguish}, got)
}

func TestBindingsFromCodes(t *testing.T) {
	b := BindingsFromCodes(57, 0)
	assert.Equal(t, Bindings{evdev.EvCode(57): Offer}, b)
	assert.Equal(t, "offer", Offer.String())
	assert.Equal(t, "extinguish", Extinguish.String())
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
