package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseColor converts "#RRGGBB" or "#RRGGBBAA" hex notation to a Color.
// The empty string parses as transparent black.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return Color{}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("frame: bad color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("frame: bad color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xFF
	}
	return Color{
		R: float32(v>>24&0xFF) / 255,
		G: float32(v>>16&0xFF) / 255,
		B: float32(v>>8&0xFF) / 255,
		A: float32(v&0xFF) / 255,
	}, nil
}
