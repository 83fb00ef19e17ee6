// Package strip mirrors composited frames onto an addressable LED strip
// over SPI, falling back to an ANSI console rendering when no SPI port is
// present.
package strip

import (
	"image"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/devices/v3/screen1d"
	"periph.io/x/host/v3"
)

// Refresh rate drives the NRZ bitstream frequency, in kHz per channel.
const refreshRate = 800

// Mirror drives a display.Drawer with composited frames.
type Mirror struct {
	log      zerolog.Logger
	whiteCap float64
	spi      bool

	mu     sync.Mutex
	drawer display.Drawer
	scaled *image.NRGBA
}

// Open initializes the host, opens the named SPI port (empty selects the
// first available) and attaches an NRZ LED chain of numPixels. When no SPI
// port can be opened it mirrors to the console instead. whiteCap in (0, 1)
// limits per-pixel combined brightness to protect the supply rail.
func Open(devName string, numPixels int, whiteCap float64, logger zerolog.Logger) (*Mirror, error) {
	m := &Mirror{
		log:      logger.With().Str("task", "strip").Logger(),
		whiteCap: whiteCap,
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	port, err := spireg.Open(devName)
	if err != nil {
		m.log.Warn().Err(err).Str("dev", devName).Msg("no SPI port, mirroring to console")
		m.drawer = screen1d.New(&screen1d.Opts{X: numPixels})
		return m, nil
	}

	opts := nrzled.Opts{
		NumPixels: numPixels,
		Channels:  3,
		Freq:      ((refreshRate * 3) + 100) * physic.KiloHertz,
	}
	d, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		return nil, err
	}
	_ = d.Halt()
	m.drawer = d
	m.spi = true
	return m, nil
}

// newMirror wraps an existing drawer. Used by tests.
func newMirror(d display.Drawer, whiteCap float64, logger zerolog.Logger) *Mirror {
	return &Mirror{log: logger, whiteCap: whiteCap, drawer: d}
}

// SPI reports whether real hardware is attached.
func (m *Mirror) SPI() bool { return m.spi }

// Publish mirrors one composited frame to the strip. Matches the
// manager's frame observer signature.
func (m *Mirror) Publish(frameID uint64, img *image.NRGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.capped(img)
	if err := m.drawer.Draw(m.drawer.Bounds(), out, image.Point{}); err != nil {
		m.log.Error().Err(err).Uint64("frame_id", frameID).Msg("strip draw failed")
	}
}

// Halt blanks the strip.
func (m *Mirror) Halt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawer.Halt()
}

// capped applies the white-cap limiter: pixels whose r+g+b exceeds
// whiteCap*3*255 are scaled down proportionally. The input image is not
// modified.
func (m *Mirror) capped(img *image.NRGBA) *image.NRGBA {
	if m.whiteCap <= 0 || m.whiteCap >= 1 {
		return img
	}
	if m.scaled == nil || m.scaled.Rect != img.Rect {
		m.scaled = image.NewNRGBA(img.Rect)
	}
	copy(m.scaled.Pix, img.Pix)

	limit := m.whiteCap * 3.0 * 255.0
	pix := m.scaled.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		sum := float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])
		if sum > limit && sum > 0 {
			scale := limit / sum
			pix[i] = byte(math.Round(float64(pix[i]) * scale))
			pix[i+1] = byte(math.Round(float64(pix[i+1]) * scale))
			pix[i+2] = byte(math.Round(float64(pix[i+2]) * scale))
		}
	}
	return m.scaled
}
