package fx

import "github.com/coreman2200/funtimes-lumatrix/internal/anim"

// Register adds every built-in effect to the manager's registry.
func Register(m *anim.Manager) {
	m.Register("rainbow", NewRainbow)
	m.Register("ripple", NewRipple)
}

// DefaultOptions returns the preferred options for a built-in kind, used
// when the configuration does not specify a rate.
func DefaultOptions(kind string) anim.Options {
	switch kind {
	case "rainbow":
		return anim.Options{FPS: rainbowFPS}
	case "ripple":
		return anim.Options{FPS: rippleFPS}
	}
	return anim.Options{}
}
