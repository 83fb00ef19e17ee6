package fx

import (
	"context"
	"errors"
	"time"

	"github.com/coreman2200/funtimes-lumatrix/internal/anim"
	"github.com/coreman2200/funtimes-lumatrix/internal/dev"
	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/input"
)

const (
	rippleFPS      = 30
	rippleLifetime = 1500 * time.Millisecond
	rippleMaxR     = 12.0
)

// Ripple draws an expanding ring from each key press. Requires a device
// with key input.
type Ripple struct {
	width  int
	height int
	color  frame.Color
	queue  *input.Queue

	waves []wave
}

type wave struct {
	row  int
	col  int
	born time.Duration
}

// NewRipple is the registry factory for the "ripple" kind.
func NewRipple(d *dev.Device) (anim.Renderer, error) {
	if !d.HasKeyInput() {
		return nil, errors.New("fx: ripple requires a device with key input")
	}
	return &Ripple{
		width:  d.Width,
		height: d.Height,
		color:  frame.RGB(0, 0.8, 1),
		queue:  input.NewQueue(d.Input),
	}, nil
}

func (r *Ripple) Init(f *frame.Frame) error {
	return r.queue.Attach()
}

func (r *Ripple) Draw(ctx context.Context, layer *anim.Layer, now time.Duration) (bool, error) {
	if len(r.waves) == 0 {
		// Idle: suspend until a key arrives rather than burning frames.
		events, err := r.queue.GetEvents(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, nil
			}
			return false, err
		}
		r.spawn(events, now)
	} else {
		r.spawn(r.queue.Poll(), now)
	}

	kept := r.waves[:0]
	for _, w := range r.waves {
		age := now - w.born
		if age > rippleLifetime {
			continue
		}
		kept = append(kept, w)

		progress := float64(age) / float64(rippleLifetime)
		radius := progress * rippleMaxR
		c := r.color
		c.A = float32(1 - progress)
		layer.Circle(w.row, w.col, radius, c, false)
	}
	r.waves = kept
	return true, nil
}

func (r *Ripple) Finish(f *frame.Frame) {
	r.queue.Detach()
}

// spawn starts a wave for each key-down event, mapping the key code onto
// the matrix.
func (r *Ripple) spawn(events []input.Event, now time.Duration) {
	for _, ev := range events {
		if !ev.Pressed {
			continue
		}
		r.waves = append(r.waves, wave{
			row:  int(ev.Code) / r.width % r.height,
			col:  int(ev.Code) % r.width,
			born: now,
		})
	}
}
