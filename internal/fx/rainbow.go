// Package fx ships the built-in effect renderers and registers them with
// an animation manager.
package fx

import (
	"context"
	"time"

	"github.com/coreman2200/funtimes-lumatrix/internal/anim"
	"github.com/coreman2200/funtimes-lumatrix/internal/dev"
	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
)

const (
	rainbowFPS     = 5
	defaultSpeed   = 8
	defaultStagger = 4
)

// Rainbow washes a cycling hue gradient across the matrix. Each row is
// staggered so the colors flow diagonally.
type Rainbow struct {
	width   int
	height  int
	speed   int
	stagger int

	gradient []frame.Color
	offset   int
}

// NewRainbow is the registry factory for the "rainbow" kind.
func NewRainbow(d *dev.Device) (anim.Renderer, error) {
	return &Rainbow{
		width:   d.Width,
		height:  d.Height,
		speed:   defaultSpeed,
		stagger: defaultStagger,
	}, nil
}

func (r *Rainbow) Init(f *frame.Frame) error {
	n := r.speed*r.width + r.height*r.stagger
	if n < 1 {
		n = 1
	}
	r.gradient = hueGradient(0, n)
	r.offset = 0
	return nil
}

func (r *Rainbow) Draw(ctx context.Context, layer *anim.Layer, now time.Duration) (bool, error) {
	n := len(r.gradient)
	for row := 0; row < r.height; row++ {
		for col := 0; col < r.width; col++ {
			layer.Set(row, col, r.gradient[(r.offset+row*r.stagger+col)%n])
		}
	}
	r.offset = (r.offset + 1) % n
	return true, nil
}

func (r *Rainbow) Finish(f *frame.Frame) {}

// hueGradient samples length colors along the hue circle starting at
// start degrees, at full saturation and value.
func hueGradient(start float64, length int) []frame.Color {
	step := 360.0 / float64(length)
	out := make([]frame.Color, length)
	for i := range out {
		h := start + step*float64(i)
		for h >= 360 {
			h -= 360
		}
		rr, g, b := hsvToRGB(h/360.0, 1, 1)
		out[i] = frame.RGB(float32(rr), float32(g), float32(b))
	}
	return out
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
