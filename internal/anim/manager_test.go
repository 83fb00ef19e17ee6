package anim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
)

func TestAddUnknownRendererKind(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	z, err := m.AddRenderer("nope", Options{})
	assert.Equal(t, -1, z)
	assert.ErrorIs(t, err, ErrUnknownRenderer)
}

func TestAddRendererInitFailure(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "broken", &stubRenderer{initErr: errors.New("no such effect resource")})

	z, err := m.AddRenderer("broken", Options{})
	assert.Equal(t, -1, z)
	assert.Error(t, err)

	// The failed renderer was not appended.
	register(m, "ok", &stubRenderer{fill: frame.RGB(1, 1, 1)})
	z, err = m.AddRenderer("ok", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, z)
}

func TestAddRendererWhileRunning(t *testing.T) {
	m, _, sink := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{fill: frame.RGB(1, 1, 1)})

	_, err := m.AddRenderer("solid", Options{FPS: 30})
	require.NoError(t, err)
	require.True(t, m.Start(frame.BlendNormal))
	require.Eventually(t, func() bool { return sink.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	z, err := m.AddRenderer("solid", Options{})
	assert.Equal(t, -1, z)
	assert.ErrorIs(t, err, ErrRunning)

	require.True(t, m.Stop())
}

func TestStartTwiceFails(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{fill: frame.RGB(1, 1, 1)})
	_, err := m.AddRenderer("solid", Options{FPS: 30})
	require.NoError(t, err)

	require.True(t, m.Start(frame.BlendNormal))
	assert.False(t, m.Start(frame.BlendNormal))
	require.True(t, m.Stop())
	assert.False(t, m.Stop(), "second stop is a no-op")
}

func TestRestartAfterStop(t *testing.T) {
	m, _, sink := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{fill: frame.RGB(0, 1, 0)})
	_, err := m.AddRenderer("solid", Options{FPS: 30})
	require.NoError(t, err)

	require.True(t, m.Start(frame.BlendNormal))
	require.Eventually(t, func() bool { return sink.count() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.True(t, m.Stop())

	before := sink.count()
	require.True(t, m.Start(frame.BlendNormal))
	require.Eventually(t, func() bool { return sink.count() > before }, 2*time.Second, 10*time.Millisecond)
	require.True(t, m.Stop())
}

func TestClearRenderersOnlyWhileStopped(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{fill: frame.RGB(1, 1, 1)})
	_, err := m.AddRenderer("solid", Options{FPS: 30})
	require.NoError(t, err)

	require.True(t, m.Start(frame.BlendNormal))
	assert.False(t, m.ClearRenderers())
	require.True(t, m.Stop())

	assert.True(t, m.ClearRenderers())
	assert.False(t, m.Start(frame.BlendNormal), "cleared manager has nothing to run")
}

func TestRendererConfigAccess(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{fill: frame.RGB(1, 1, 1)})
	z, err := m.AddRenderer("solid", Options{FPS: 100, Opacity: 0.5, Blend: "screen"})
	require.NoError(t, err)

	cfg, ok := m.Renderer(z)
	require.True(t, ok)
	assert.Equal(t, float64(MaxFPS), cfg.FPS(), "fps clamps to the ceiling")
	assert.InDelta(t, 0.5, float64(cfg.Opacity()), 0.001)
	assert.Equal(t, frame.BlendScreen, cfg.Blend())
	assert.Equal(t, 8, cfg.Width())
	assert.Equal(t, 2, cfg.Height())

	cfg.SetFPS(10)
	assert.Equal(t, 10.0, cfg.FPS())

	_, ok = m.Renderer(99)
	assert.False(t, ok)
}

func TestKinds(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "zeta", &stubRenderer{})
	register(m, "alpha", &stubRenderer{})
	assert.Equal(t, []string{"alpha", "zeta"}, m.Kinds())
}

func TestInvalidBlendOption(t *testing.T) {
	m, _, _ := testManager(t, 8, 2)
	register(m, "solid", &stubRenderer{})
	z, err := m.AddRenderer("solid", Options{Blend: "sparkle"})
	assert.Equal(t, -1, z)
	assert.Error(t, err)
}
