package anim

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumatrix/internal/dev"
	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/proto"
)

var (
	// ErrRunning is returned when an operation requires a stopped loop.
	ErrRunning = errors.New("anim: animation loop is running")
	// ErrUnknownRenderer is returned for kinds missing from the registry.
	ErrUnknownRenderer = errors.New("anim: unknown renderer kind")
)

// Factory instantiates a renderer kind against a device. The registry is
// populated explicitly by whatever assembles the application; there is no
// discovery mechanism.
type Factory func(d *dev.Device) (Renderer, error)

// Manager tracks configured renderers and owns the compositing loop's
// lifecycle.
type Manager struct {
	dev *dev.Device
	fb  *frame.Frame
	log zerolog.Logger

	mu       sync.Mutex
	registry map[string]Factory
	runners  []*runner
	loop     *loop
	running  bool
	observer FrameObserver
}

// NewManager builds a Manager for the given device.
func NewManager(d *dev.Device, logger zerolog.Logger) (*Manager, error) {
	fb, err := frame.New(d.Width, d.Height)
	if err != nil {
		return nil, err
	}
	return &Manager{
		dev:      d,
		fb:       fb,
		log:      logger.With().Str("task", "animmgr").Logger(),
		registry: map[string]Factory{},
	}, nil
}

// Register adds a renderer kind to the registry, replacing any previous
// factory under the same name.
func (m *Manager) Register(kind string, f Factory) {
	m.mu.Lock()
	m.registry[kind] = f
	m.mu.Unlock()
}

// Kinds lists the registered renderer kinds, sorted.
func (m *Manager) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.registry))
	for k := range m.registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AddRenderer instantiates and initializes a renderer. Its z-order is the
// insertion index: later renderers composite on top. Fails while the loop
// is running, for unknown kinds, and when Init fails.
func (m *Manager) AddRenderer(kind string, opts Options) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return -1, ErrRunning
	}
	factory, ok := m.registry[kind]
	if !ok {
		m.log.Error().Str("kind", kind).Msg("unknown renderer")
		return -1, fmt.Errorf("%w: %s", ErrUnknownRenderer, kind)
	}

	rend, err := factory(m.dev)
	if err != nil {
		return -1, fmt.Errorf("renderer %s: %w", kind, err)
	}

	blend := frame.BlendNormal
	blendSet := opts.Blend != ""
	if blendSet {
		if blend, err = frame.ParseBlendMode(opts.Blend); err != nil {
			return -1, err
		}
	}

	zorder := len(m.runners)
	cfg := newConfig(opts, m.dev.Width, m.dev.Height, zorder, blend, blendSet)

	if err := rend.Init(m.fb); err != nil {
		m.log.Error().Err(err).Str("kind", kind).Msg("renderer failed to initialize")
		return -1, fmt.Errorf("renderer %s init: %w", kind, err)
	}

	m.runners = append(m.runners, newRunner(kind, rend, cfg, m.log))
	return zorder, nil
}

// Renderer returns the live Config of the renderer at the given z-order,
// for synchronous adjustment of rate and appearance.
func (m *Manager) Renderer(zorder int) (*Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if zorder < 0 || zorder >= len(m.runners) {
		return nil, false
	}
	return m.runners[zorder].cfg, true
}

// SetFrameObserver installs a composited-frame observer. Takes effect on
// the next Start.
func (m *Manager) SetFrameObserver(obs FrameObserver) {
	m.mu.Lock()
	m.observer = obs
	m.mu.Unlock()
}

// Start builds the compositing loop and begins animation. Renderers whose
// options left the blend mode unset use defaultBlend. Returns false if
// already running or no renderers are configured.
func (m *Manager) Start(defaultBlend frame.BlendMode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}
	if len(m.runners) == 0 {
		m.log.Error().Msg("no renderers were configured")
		return false
	}

	for _, r := range m.runners {
		if !r.cfg.blendConfigured() {
			r.cfg.setDefaultBlend(defaultBlend)
		}
	}

	m.loop = newLoop(m.fb, proto.NewEncoder(m.dev.Transport), m.runners,
		m.log, m.observer, m.loopFailed)

	if !m.loop.start() {
		return false
	}
	m.running = true
	return true
}

// Stop halts the loop and waits for every task to finish.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	if !m.running || m.loop == nil {
		m.mu.Unlock()
		return false
	}
	m.running = false
	lp := m.loop
	m.mu.Unlock()

	return lp.stop()
}

// ClearRenderers discards the configured renderers. Only permitted while
// stopped.
func (m *Manager) ClearRenderers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return false
	}
	m.runners = nil
	return true
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Close stops the loop if it is running. Call before discarding the
// Manager so no background task outlives it.
func (m *Manager) Close() {
	m.Stop()
}

// loopFailed records an unrecoverable loop error; the loop has already
// forced a stop by the time this runs.
func (m *Manager) loopFailed(err error) {
	m.log.Error().Err(err).Msg("animation loop failed")
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}
