package main

import (
	"flag"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lumatrix/internal/anim"
	"github.com/coreman2200/funtimes-lumatrix/internal/config"
	"github.com/coreman2200/funtimes-lumatrix/internal/dev"
	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
	"github.com/coreman2200/funtimes-lumatrix/internal/fx"
	"github.com/coreman2200/funtimes-lumatrix/internal/proto"
	"github.com/coreman2200/funtimes-lumatrix/internal/strip"
	"github.com/coreman2200/funtimes-lumatrix/internal/ws"
)

func main() {
	// ---- Flags (config.yaml can override most) ----
	var (
		width      = flag.Int("width", 22, "matrix columns")
		height     = flag.Int("height", 6, "matrix rows")
		quirk80    = flag.Bool("quirk-80", false, "firmware wants transaction id 0x80")
		blend      = flag.String("blend", "normal", "default blend mode: normal | additive | multiply | screen")
		effect     = flag.String("effect", "rainbow", "effect to run when config lists none")
		addr       = flag.String("addr", ":8080", "HTTP listen address for the preview")
		preview    = flag.Bool("preview", false, "serve the websocket preview")
		configPath = flag.String("config", "lumatrix.yaml", "path to lumatrix.yaml")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params ----
	eWidth, eHeight := *width, *height
	eQuirk, eBlend := *quirk80, *blend
	name := "lumatrix-sim"
	if cfg != nil {
		if cfg.Device.Width > 0 {
			eWidth = cfg.Device.Width
		}
		if cfg.Device.Height > 0 {
			eHeight = cfg.Device.Height
		}
		if cfg.Device.Name != "" {
			name = cfg.Device.Name
		}
		if cfg.Device.Quirk80 {
			eQuirk = true
		}
		if cfg.Blend != "" {
			eBlend = cfg.Blend
		}
	}

	defaultBlend, err := frame.ParseBlendMode(eBlend)
	if err != nil {
		log.Fatal().Err(err).Msg("bad blend mode")
	}

	// ---- Device ----
	tr := dev.NewSim(log.Logger)
	if eQuirk {
		tr.SetQuirk(proto.QuirkCustomFrame80, true)
	}
	device := &dev.Device{Name: name, Width: eWidth, Height: eHeight, Transport: tr}

	// ---- Manager & effects ----
	mgr, err := anim.NewManager(device, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("manager init failed")
	}
	defer mgr.Close()
	fx.Register(mgr)

	var renderers []config.Renderer
	if cfg != nil {
		renderers = cfg.Renderers
	}
	if len(renderers) == 0 {
		renderers = []config.Renderer{{Kind: *effect}}
	}
	for _, rc := range renderers {
		opts := fx.DefaultOptions(rc.Kind)
		if rc.FPS > 0 {
			opts.FPS = rc.FPS
		}
		if rc.Opacity > 0 {
			opts.Opacity = rc.Opacity
		}
		if rc.Blend != "" {
			opts.Blend = rc.Blend
		}
		if rc.Background != "" {
			bg, err := frame.ParseColor(rc.Background)
			if err != nil {
				log.Fatal().Err(err).Str("kind", rc.Kind).Msg("bad background color")
			}
			opts.Background = bg
		}
		z, err := mgr.AddRenderer(rc.Kind, opts)
		if err != nil {
			log.Fatal().Err(err).Str("kind", rc.Kind).Msg("add renderer failed")
		}
		log.Info().Str("kind", rc.Kind).Int("zorder", z).Msg("renderer added")
	}

	// ---- Frame observers: preview and strip mirror ----
	var observers []anim.FrameObserver

	var previewSrv *ws.Server
	ePreview, eAddr := *preview, *addr
	if cfg != nil && cfg.Preview.Enabled {
		ePreview = true
		if cfg.Preview.Addr != "" {
			eAddr = cfg.Preview.Addr
		}
	}
	if ePreview {
		previewSrv = ws.NewServer(eWidth, eHeight, log.Logger)
		observers = append(observers, previewSrv.Publish)
	}

	var mirror *strip.Mirror
	if cfg != nil && cfg.Strip.Enabled {
		m, err := strip.Open(cfg.Strip.Dev, eWidth*eHeight, cfg.Strip.WhiteCap, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("strip init failed; continuing without mirror")
		} else {
			mirror = m
			observers = append(observers, mirror.Publish)
		}
	}

	if len(observers) > 0 {
		mgr.SetFrameObserver(func(frameID uint64, img *image.NRGBA) {
			for _, obs := range observers {
				obs(frameID, img)
			}
		})
	}

	// ---- HTTP routes ----
	var srv *http.Server
	if previewSrv != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", previewSrv.HandleFrames)
		mux.HandleFunc("/health", previewSrv.HandleHealth)
		srv = &http.Server{
			Addr:         eAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", eAddr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("preview server crashed")
			}
		}()
	}

	// ---- Run ----
	if !mgr.Start(defaultBlend) {
		log.Fatal().Msg("animation failed to start")
	}
	log.Info().Str("device", name).Int("width", eWidth).Int("height", eHeight).Msg("animating")

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	mgr.Stop()
	if srv != nil {
		_ = srv.Close()
	}
	if mirror != nil {
		_ = mirror.Halt()
	}
}
