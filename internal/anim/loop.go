package anim

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/pace"
	"github.com/coreman2200/funtimes-lumatrix/internal/proto"
)

// FrameObserver receives each composited frame after transmission, for
// previews and mirrors. Called on the loop goroutine; keep it fast.
type FrameObserver func(frameID uint64, img *image.NRGBA)

// loop collects the output of the renderers and streams the composited
// image to the device.
//
// The design is fully demand driven: each runner signals a shared ready
// channel when it queues a layer, the loop wakes on the first signal,
// then opportunistically consumes every renderer that has output pending,
// so one cycle composites everything that is currently ready. Renderers
// that produced nothing contribute their previous layer unchanged. The
// cycle rate is capped at MaxFPS; between cycles the loop sleeps.
type loop struct {
	fb      *frame.Frame
	enc     *proto.Encoder
	runners []*runner
	current []*Layer
	ready   chan struct{}
	tick    *pace.Ticker
	log     zerolog.Logger

	observer FrameObserver
	onError  func(error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	done    chan struct{}
	frameID uint64
}

func newLoop(fb *frame.Frame, enc *proto.Encoder, runners []*runner,
	logger zerolog.Logger, observer FrameObserver, onError func(error)) *loop {
	return &loop{
		fb:       fb,
		enc:      enc,
		runners:  runners,
		ready:    make(chan struct{}, 1),
		tick:     pace.ForFPS(MaxFPS),
		log:      logger.With().Str("task", "animloop").Logger(),
		observer: observer,
		onError:  onError,
	}
}

// start allocates the double-buffer pools and launches the renderer and
// loop tasks. Returns false if already running or no renderers exist.
func (l *loop) start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.log.Error().Msg("animation loop already running")
		return false
	}
	if len(l.runners) == 0 {
		l.log.Error().Msg("no renderers were configured")
		return false
	}

	l.fb.Clear()
	l.current = make([]*Layer, len(l.runners))

	for _, r := range l.runners {
		r.flush()
		r.ready = l.ready
		for i := 0; i < NumBuffers; i++ {
			layer, err := NewLayer(r.cfg.Width(), r.cfg.Height(), r.cfg.Blend())
			if err != nil {
				l.log.Error().Err(err).Msg("layer allocation failed")
				return false
			}
			r.freeLayer(layer)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	start := time.Now()

	for _, r := range l.runners {
		r := r
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			r.run(ctx, start)
		}()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.animate(ctx)
	}()

	l.running = true
	return true
}

// stop signals every task to stop, cancels outstanding waits, and blocks
// until all of them reach a terminal state. Layers left in flight are
// unlocked and discarded. A stop that loses the race against another
// stop (a device failure forces one) still blocks until that shutdown
// has fully completed, then returns false.
func (l *loop) stop() bool {
	l.mu.Lock()
	if !l.running {
		done := l.done
		l.mu.Unlock()
		if done != nil {
			<-done
		}
		return false
	}
	l.running = false
	done := l.done
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()

	for i, r := range l.runners {
		r.flush()
		if l.current[i] != nil {
			l.current[i].setLocked(false)
			l.current[i] = nil
		}
		r.rend.Finish(l.fb)
	}

	l.fb.Clear()
	l.log.Info().Msg("animation loop stopped")
	close(done)
	return true
}

func (l *loop) animate(ctx context.Context) {
	l.log.Info().Int("renderers", len(l.runners)).Msg("animation loop starting")

	for {
		l.tick.Mark()

		select {
		case <-ctx.Done():
			return
		case <-l.ready:
		}

		l.collect()
		l.compose()

		l.frameID++
		if err := l.enc.Update(l.fb, proto.DefaultFrameID); err != nil {
			l.log.Error().Err(err).Msg("device write failed, forcing stop")
			go func() {
				l.stop()
				if l.onError != nil {
					l.onError(err)
				}
			}()
			return
		}

		if l.observer != nil {
			l.observer(l.frameID, l.fb.Image())
		}

		if err := l.tick.Wait(ctx); err != nil {
			return
		}
	}
}

// collect consumes every layer that is ready right now. Newer output
// supersedes the renderer's last-known layer, which is recycled into its
// free pool.
func (l *loop) collect() {
	for i, r := range l.runners {
	drain:
		for {
			select {
			case buf := <-r.active:
				if l.current[i] != nil {
					r.freeLayer(l.current[i])
				}
				l.current[i] = buf
			default:
				break drain
			}
		}
	}
}

// compose merges the last-known layer of every renderer into the device
// frame in ascending z-order. The renderer's background color is applied
// as the layer's base so it fills whatever the renderer left transparent.
func (l *loop) compose() {
	l.fb.Clear()
	for i, r := range l.runners {
		if cur := l.current[i]; cur != nil {
			cur.SetBase(r.cfg.Background())
			frame.Composite(l.fb, cur.Frame, cur.BlendMode(), r.cfg.Opacity())
		}
	}
}
