// Package frame implements the 2-D RGBA framebuffer that renderers draw
// into and the compositor flattens for transmission to the hardware.
package frame

import (
	"errors"
	"image"
	"sync/atomic"
)

// Color is a linear RGBA value with all channels in [0,1].
type Color struct {
	R, G, B, A float32
}

// RGB returns a fully opaque color.
func RGB(r, g, b float32) Color { return Color{R: r, G: g, B: b, A: 1} }

// Frame is a dense width x height grid of Color values. Dimensions are
// fixed at construction. Clearing zeroes every cell (fully transparent);
// the base color is applied only when flattening to an opaque image.
//
// A Frame is not safe for concurrent use; ownership is handed between the
// renderer and the compositor, never shared. During serialization the
// buffer is sealed via Borrow and any mutation panics, so a torn frame
// shows up as a programming error instead of garbage on the hardware.
type Frame struct {
	width  int
	height int
	pix    []Color
	base   Color
	sealed atomic.Bool
}

// New allocates a cleared Frame.
func New(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("frame: invalid dimensions")
	}
	return &Frame{
		width:  width,
		height: height,
		pix:    make([]Color, width*height),
	}, nil
}

func (f *Frame) Width() int  { return f.width }
func (f *Frame) Height() int { return f.height }

// SetBase sets the background color used when flattening.
func (f *Frame) SetBase(c Color) { f.base = c }

// Base returns the background color.
func (f *Frame) Base() Color { return f.base }

// Clear zeroes every cell. The base color is not painted here; it only
// participates at flatten time.
func (f *Frame) Clear() {
	f.checkWritable()
	for i := range f.pix {
		f.pix[i] = Color{}
	}
}

// Set writes a single cell. Out-of-range coordinates are clipped silently.
func (f *Frame) Set(row, col int, c Color) {
	f.checkWritable()
	if row < 0 || row >= f.height || col < 0 || col >= f.width {
		return
	}
	f.pix[row*f.width+col] = c
}

// Get reads a single cell. Out-of-range coordinates read as transparent.
func (f *Frame) Get(row, col int) Color {
	if row < 0 || row >= f.height || col < 0 || col >= f.width {
		return Color{}
	}
	return f.pix[row*f.width+col]
}

// Fill sets every cell to c.
func (f *Frame) Fill(c Color) {
	f.checkWritable()
	for i := range f.pix {
		f.pix[i] = c
	}
}

// Blend composites c over the cell at (row, col) with the given coverage
// fraction: out = old*(1-cov) + c*cov, applied to all four channels.
// Out-of-range coordinates are discarded before blending.
func (f *Frame) Blend(row, col int, c Color, cov float32) {
	f.checkWritable()
	if row < 0 || row >= f.height || col < 0 || col >= f.width {
		return
	}
	cov = clamp01(cov)
	if cov <= 0 {
		return
	}
	i := row*f.width + col
	old := f.pix[i]
	inv := 1 - cov
	f.pix[i] = Color{
		R: old.R*inv + c.R*cov,
		G: old.G*inv + c.G*cov,
		B: old.B*inv + c.B*cov,
		A: old.A*inv + c.A*cov,
	}
}

// Borrow takes exclusive read access to the backing storage for the
// duration of serialization. The returned release func must be called on
// every exit path. Mutating a sealed Frame panics.
func (f *Frame) Borrow() (release func()) {
	if !f.sealed.CompareAndSwap(false, true) {
		panic("frame: already sealed for transmit")
	}
	return func() { f.sealed.Store(false) }
}

// Sealed reports whether the Frame is currently borrowed for transmit.
func (f *Frame) Sealed() bool { return f.sealed.Load() }

func (f *Frame) checkWritable() {
	if f.sealed.Load() {
		panic("frame: mutated while sealed for transmit")
	}
}

// Flatten produces the opaque RGBA8 byte image sent on the wire:
// rgb = pixel.rgb*a + base*(1-a), alpha forced to full. The layout is
// row-major, 4 bytes per pixel.
func (f *Frame) Flatten() []byte {
	out := make([]byte, len(f.pix)*4)
	for i, p := range f.pix {
		a := clamp01(p.A)
		inv := 1 - a
		out[i*4+0] = byte8(p.R*a + f.base.R*inv)
		out[i*4+1] = byte8(p.G*a + f.base.G*inv)
		out[i*4+2] = byte8(p.B*a + f.base.B*inv)
		out[i*4+3] = 0xFF
	}
	return out
}

// Image flattens into an image.NRGBA, for previews and strip mirroring.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	copy(img.Pix, f.Flatten())
	return img
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func byte8(x float32) byte {
	v := clamp01(x) * 255
	return byte(v + 0.5)
}
