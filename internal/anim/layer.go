package anim

import (
	"sync/atomic"

	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
)

// Layer is one renderer's private drawable buffer plus its blend-mode tag
// and lock flag. A Layer is either free (owned by its renderer, safe to
// draw into) or locked (queued for or undergoing composition, owned by
// the loop), never both at once. Ownership moves by channel handoff
// between the renderer's free pool and its active queue.
type Layer struct {
	*frame.Frame

	blend  atomic.Int32
	locked atomic.Bool
}

// NewLayer allocates a cleared layer tagged with the given blend mode.
func NewLayer(width, height int, blend frame.BlendMode) (*Layer, error) {
	f, err := frame.New(width, height)
	if err != nil {
		return nil, err
	}
	l := &Layer{Frame: f}
	l.SetBlendMode(blend)
	return l, nil
}

// BlendMode returns how this layer composites onto layers below it.
func (l *Layer) BlendMode() frame.BlendMode {
	return frame.BlendMode(l.blend.Load())
}

// SetBlendMode tags the layer for composition. Renderers may override the
// configured mode per frame before handing the layer off.
func (l *Layer) SetBlendMode(m frame.BlendMode) {
	l.blend.Store(int32(m))
}

// Locked reports whether the compositor currently owns this layer.
func (l *Layer) Locked() bool { return l.locked.Load() }

func (l *Layer) setLocked(v bool) { l.locked.Store(v) }
