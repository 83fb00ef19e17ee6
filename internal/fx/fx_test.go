package fx

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lumatrix/internal/anim"
	"github.com/coreman2200/funtimes-lumatrix/internal/dev"
	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/input"
)

type fakeKeys struct {
	mu   sync.Mutex
	subs []chan<- input.Event
}

func (s *fakeKeys) Subscribe(ch chan<- input.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, ch)
	return nil
}

func (s *fakeKeys) Unsubscribe(ch chan<- input.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *fakeKeys) press(code uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub <- input.Event{Time: time.Now(), Code: code, Pressed: true}
	}
}

func mustLayer(t *testing.T, w, h int) *anim.Layer {
	t.Helper()
	l, err := anim.NewLayer(w, h, frame.BlendNormal)
	require.NoError(t, err)
	return l
}

func TestRegisterAddsBuiltinKinds(t *testing.T) {
	tr := dev.NewSim(zerolog.Nop())
	d := &dev.Device{Name: "sim", Width: 8, Height: 4, Transport: tr}
	m, err := anim.NewManager(d, zerolog.Nop())
	require.NoError(t, err)
	Register(m)
	assert.Equal(t, []string{"rainbow", "ripple"}, m.Kinds())
}

func TestRainbowCoversEveryCell(t *testing.T) {
	d := &dev.Device{Name: "sim", Width: 8, Height: 4}
	r, err := NewRainbow(d)
	require.NoError(t, err)

	fb, err := frame.New(8, 4)
	require.NoError(t, err)
	require.NoError(t, r.Init(fb))

	layer := mustLayer(t, 8, 4)
	ok, err := r.Draw(context.Background(), layer, 0)
	require.NoError(t, err)
	require.True(t, ok)

	for row := 0; row < 4; row++ {
		for col := 0; col < 8; col++ {
			c := layer.Get(row, col)
			assert.Equal(t, float32(1), c.A, "rainbow pixels are opaque")
			assert.Positive(t, c.R+c.G+c.B, "hue gradient never produces black")
		}
	}
}

func TestRainbowFlows(t *testing.T) {
	d := &dev.Device{Name: "sim", Width: 8, Height: 4}
	r, err := NewRainbow(d)
	require.NoError(t, err)

	fb, err := frame.New(8, 4)
	require.NoError(t, err)
	require.NoError(t, r.Init(fb))

	a := mustLayer(t, 8, 4)
	b := mustLayer(t, 8, 4)
	_, err = r.Draw(context.Background(), a, 0)
	require.NoError(t, err)
	_, err = r.Draw(context.Background(), b, time.Second)
	require.NoError(t, err)

	// One step of flow: the second frame shifted by one gradient slot.
	assert.Equal(t, a.Get(0, 1), b.Get(0, 0))
	assert.NotEqual(t, a.Get(0, 0), b.Get(0, 0))
}

func TestRippleRequiresKeyInput(t *testing.T) {
	d := &dev.Device{Name: "sim", Width: 8, Height: 4}
	_, err := NewRipple(d)
	assert.Error(t, err)
}

func TestRippleIdleSuspendsUntilCancel(t *testing.T) {
	keys := &fakeKeys{}
	d := &dev.Device{Name: "sim", Width: 8, Height: 4, Input: keys}
	r, err := NewRipple(d)
	require.NoError(t, err)

	fb, err := frame.New(8, 4)
	require.NoError(t, err)
	require.NoError(t, r.Init(fb))
	defer r.Finish(fb)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	layer := mustLayer(t, 8, 4)
	ok, err := r.Draw(ctx, layer, 0)
	assert.False(t, ok, "no key, nothing to submit")
	assert.NoError(t, err, "cancellation is not a renderer failure")
}

func TestRippleSurvivesRestart(t *testing.T) {
	keys := &fakeKeys{}
	tr := dev.NewSim(zerolog.Nop())
	d := &dev.Device{Name: "sim", Width: 8, Height: 4, Transport: tr, Input: keys}
	m, err := anim.NewManager(d, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	Register(m)

	_, err = m.AddRenderer("ripple", DefaultOptions("ripple"))
	require.NoError(t, err)

	var frames atomic.Int64
	m.SetFrameObserver(func(frameID uint64, img *image.NRGBA) { frames.Add(1) })

	require.True(t, m.Start(frame.BlendNormal))
	require.True(t, m.Stop())

	// The stop detached the key queue; a second run must still see keys.
	require.True(t, m.Start(frame.BlendNormal))
	require.Eventually(t, func() bool {
		keys.press(10)
		return frames.Load() > 0
	}, 5*time.Second, 20*time.Millisecond, "key presses composite frames after a restart")
	require.True(t, m.Stop())
}

func TestRippleDrawsAndExpires(t *testing.T) {
	keys := &fakeKeys{}
	d := &dev.Device{Name: "sim", Width: 8, Height: 4, Input: keys}
	r, err := NewRipple(d)
	require.NoError(t, err)

	fb, err := frame.New(8, 4)
	require.NoError(t, err)
	require.NoError(t, r.Init(fb))
	defer r.Finish(fb)

	keys.press(10) // maps to row 1, col 2

	layer := mustLayer(t, 8, 4)
	ok, err := r.Draw(context.Background(), layer, 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	lit := 0
	for row := 0; row < 4; row++ {
		for col := 0; col < 8; col++ {
			if layer.Get(row, col).A > 0 {
				lit++
			}
		}
	}
	assert.Positive(t, lit, "a fresh wave lights cells")

	// Long after the lifetime the wave is gone and the renderer goes idle.
	layer2 := mustLayer(t, 8, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err = r.Draw(ctx, layer2, 10*time.Second)
	require.NoError(t, err)
	if ok {
		// The expiry draw itself may still submit an empty layer once.
		for row := 0; row < 4; row++ {
			for col := 0; col < 8; col++ {
				assert.Zero(t, layer2.Get(row, col).A)
			}
		}
	}
}
