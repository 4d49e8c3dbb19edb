package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, "c64screen", w.title)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.False(t, w.startFullscreen)
}

func TestWindowOptions(t *testing.T) {
	w := newEngineWindow(WithTitle("screen"), WithWidth(800), WithHeight(600), WithFullscreen(true))
	assert.Equal(t, "screen", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.True(t, w.startFullscreen)
}

func TestWindowSizeClampedToLimits(t *testing.T) {
	w := newEngineWindow(WithWidth(10), WithHeight(100000))
	assert.Equal(t, MinWidth, w.Width())
	assert.Equal(t, MaxHeight, w.Height())

	w = newEngineWindow(WithWidth(99999), WithHeight(-4))
	assert.Equal(t, MaxWidth, w.Width())
	assert.Equal(t, MinHeight, w.Height())
}
