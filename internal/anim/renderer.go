// Package anim runs effect renderers on independent cadences and
// composites their output into a single frame streamed to the device.
package anim

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/pace"
)

const (
	// MaxFPS caps both individual renderers and the compositing loop.
	MaxFPS = 30
	// DefaultFPS is used when a renderer does not configure a rate.
	DefaultFPS = 15
	// NumBuffers is the per-renderer layer pool depth (double buffering).
	NumBuffers = 2
)

// Renderer is a timed producer of layers. Init runs once before the first
// draw; Draw is invoked with a free layer and a monotonic timestamp and
// may block (waiting on input, for example) without stalling other
// renderers; returning false skips submission of the layer; returning an
// error terminates this renderer only. Finish runs exactly once on stop.
type Renderer interface {
	Init(f *frame.Frame) error
	Draw(ctx context.Context, layer *Layer, now time.Duration) (bool, error)
	Finish(f *frame.Frame)
}

// Options configures a renderer at add time. Zero values select defaults:
// DefaultFPS, full opacity, the loop's default blend mode, and no
// background color.
type Options struct {
	FPS        float64
	Opacity    float64
	Blend      string
	Background frame.Color
}

// Config is a renderer's live configuration. Geometry and z-order are
// fixed at creation; rate and appearance may be adjusted while running
// and take effect synchronously.
type Config struct {
	width  int
	height int
	zorder int

	mu         sync.Mutex
	fps        float64
	opacity    float32
	blend      frame.BlendMode
	blendSet   bool
	background frame.Color

	tick *pace.Ticker
}

func newConfig(opts Options, width, height, zorder int, blend frame.BlendMode, blendSet bool) *Config {
	c := &Config{
		width:      width,
		height:     height,
		zorder:     zorder,
		opacity:    1,
		blend:      blend,
		blendSet:   blendSet,
		background: opts.Background,
		tick:       pace.ForFPS(DefaultFPS),
	}
	c.SetFPS(opts.FPS)
	if opts.Opacity > 0 {
		c.SetOpacity(opts.Opacity)
	}
	return c
}

func (c *Config) Width() int  { return c.width }
func (c *Config) Height() int { return c.height }
func (c *Config) ZOrder() int { return c.zorder }

// SetFPS clamps to (0, MaxFPS] and retunes the pacing ticker immediately.
// Zero or negative selects DefaultFPS.
func (c *Config) SetFPS(fps float64) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}
	c.mu.Lock()
	c.fps = fps
	c.mu.Unlock()
	c.tick.SetInterval(pace.IntervalFor(fps))
}

func (c *Config) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// SetOpacity clamps to [0, 1].
func (c *Config) SetOpacity(o float64) {
	if o < 0 {
		o = 0
	}
	if o > 1 {
		o = 1
	}
	c.mu.Lock()
	c.opacity = float32(o)
	c.mu.Unlock()
}

func (c *Config) Opacity() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

func (c *Config) SetBlend(m frame.BlendMode) {
	c.mu.Lock()
	c.blend = m
	c.blendSet = true
	c.mu.Unlock()
}

// blendConfigured reports whether a blend mode was set explicitly, as
// opposed to inherited from the loop default at start.
func (c *Config) blendConfigured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blendSet
}

// setDefaultBlend applies the loop default without marking the mode as
// explicitly configured, so a later Start may apply a different default.
func (c *Config) setDefaultBlend(m frame.BlendMode) {
	c.mu.Lock()
	c.blend = m
	c.mu.Unlock()
}

func (c *Config) Blend() frame.BlendMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blend
}

func (c *Config) SetBackground(col frame.Color) {
	c.mu.Lock()
	c.background = col
	c.mu.Unlock()
}

func (c *Config) Background() frame.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.background
}

// runner drives one Renderer: it dequeues free layers, invokes Draw on
// the renderer's own cadence, and queues drawn layers for composition.
type runner struct {
	rend Renderer
	kind string
	cfg  *Config
	log  zerolog.Logger

	avail  chan *Layer
	active chan *Layer
	ready  chan<- struct{}
}

func newRunner(kind string, rend Renderer, cfg *Config, logger zerolog.Logger) *runner {
	return &runner{
		rend:   rend,
		kind:   kind,
		cfg:    cfg,
		log:    logger.With().Str("renderer", kind).Int("zorder", cfg.ZOrder()).Logger(),
		avail:  make(chan *Layer, NumBuffers),
		active: make(chan *Layer, NumBuffers),
	}
}

// run is the renderer task. Each iteration acquires a free layer
// (blocking when both buffers are queued for composition — backpressure
// rather than frame dropping), draws, submits, and sleeps the remaining
// frame budget. Draw errors terminate this renderer only.
func (r *runner) run(ctx context.Context, start time.Time) {
	r.log.Info().Float64("fps", r.cfg.FPS()).Msg("renderer starting")
	defer r.log.Info().Msg("renderer stopped")

	for {
		r.cfg.tick.Mark()

		var layer *Layer
		select {
		case layer = <-r.avail:
		case <-ctx.Done():
			return
		}

		layer.SetBlendMode(r.cfg.Blend())
		ok, err := r.rend.Draw(ctx, layer, time.Since(start))
		if err != nil {
			if ctx.Err() == nil {
				r.log.Error().Err(err).Msg("draw failed, stopping renderer")
			}
			r.putAvail(layer)
			return
		}
		if ctx.Err() != nil {
			r.putAvail(layer)
			return
		}

		if ok {
			layer.setLocked(true)
			select {
			case r.active <- layer:
				r.notify()
			case <-ctx.Done():
				layer.setLocked(false)
				r.putAvail(layer)
				return
			}
		} else {
			r.putAvail(layer)
		}

		if err := r.cfg.tick.Wait(ctx); err != nil {
			return
		}
	}
}

// notify wakes the compositing loop. A single pending token is enough:
// the loop drains every ready queue per cycle.
func (r *runner) notify() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// putAvail returns a layer to the free pool without blocking. Pool
// capacity equals the number of layers, so this cannot fail.
func (r *runner) putAvail(layer *Layer) {
	select {
	case r.avail <- layer:
	default:
	}
}

// freeLayer unlocks, clears, and recycles a layer whose contribution has
// been superseded. Called by the loop only.
func (r *runner) freeLayer(layer *Layer) {
	layer.setLocked(false)
	layer.Clear()
	r.putAvail(layer)
}

// flush drains both queues so no stale layer outlives a run.
func (r *runner) flush() {
	for {
		select {
		case l := <-r.active:
			l.setLocked(false)
		case <-r.avail:
		default:
			return
		}
	}
}
