package frame

import "fmt"

// BlendMode selects how a layer's pixels combine with what has already
// been composited beneath it.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendAdditive:
		return "additive"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	}
	return "unknown"
}

// ParseBlendMode maps a config string to a BlendMode. The empty string
// means normal.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "", "normal":
		return BlendNormal, nil
	case "additive", "add":
		return BlendAdditive, nil
	case "multiply":
		return BlendMultiply, nil
	case "screen":
		return BlendScreen, nil
	}
	return BlendNormal, fmt.Errorf("frame: unknown blend mode %q", s)
}

// Composite merges src onto dst using the given blend mode and layer
// opacity. Both frames must have identical dimensions. Each source pixel
// is first laid over src's base color, so a layer background shows
// through the transparent parts of its own layer; the resulting alpha,
// scaled by opacity, weighs the blended color against the existing pixel.
func Composite(dst, src *Frame, mode BlendMode, opacity float32) {
	if dst.width != src.width || dst.height != src.height {
		panic("frame: composite dimension mismatch")
	}
	dst.checkWritable()
	opacity = clamp01(opacity)
	base := src.base
	baseA := clamp01(base.A)
	for i := range dst.pix {
		d := dst.pix[i]
		s := src.pix[i]
		if baseA > 0 {
			pa := clamp01(s.A)
			outA := pa + baseA*(1-pa)
			if outA > 0 {
				s = Color{
					R: (s.R*pa + base.R*baseA*(1-pa)) / outA,
					G: (s.G*pa + base.G*baseA*(1-pa)) / outA,
					B: (s.B*pa + base.B*baseA*(1-pa)) / outA,
					A: outA,
				}
			}
		}
		sa := clamp01(s.A) * opacity
		if sa <= 0 {
			continue
		}

		var br, bg, bb float32
		switch mode {
		case BlendAdditive:
			br, bg, bb = clamp01(d.R+s.R), clamp01(d.G+s.G), clamp01(d.B+s.B)
		case BlendMultiply:
			br, bg, bb = d.R*s.R, d.G*s.G, d.B*s.B
		case BlendScreen:
			br = 1 - (1-d.R)*(1-s.R)
			bg = 1 - (1-d.G)*(1-s.G)
			bb = 1 - (1-d.B)*(1-s.B)
		default:
			br, bg, bb = s.R, s.G, s.B
		}

		inv := 1 - sa
		dst.pix[i] = Color{
			R: d.R*inv + br*sa,
			G: d.G*inv + bg*sa,
			B: d.B*inv + bb*sa,
			A: clamp01(d.A + sa*(1-d.A)),
		}
	}
}
