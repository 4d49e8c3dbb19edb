package kernel

import (
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogBuildsEverySlot(t *testing.T) {
	b := backend.NewHeadless()
	c, err := NewCatalog(b, library(t), WithWorkers(2))
	require.NoError(t, err)

	for i, info := range c.UpscalerSlots() {
		assert.True(t, info.Available, info.Name)
		assert.Equal(t, i, info.Index)
		assert.NoError(t, c.CheckUpscaler(i))
		assert.Equal(t, info.Name, c.Upscaler(i).Name())
	}
	for i, info := range c.FilterSlots() {
		assert.True(t, info.Available, info.Name)
		assert.NoError(t, c.CheckFilter(i))
		assert.Equal(t, info.Name, c.Filter(i).Name())
	}
	assert.Len(t, b.Programs(), NumUpscalers+NumFilters)
	assert.Equal(t, [3]uint32{128, 128, 1}, c.Filter(FilterCRT).Workgroups())
}

func TestRepeatedCatalogsReuseWorkers(t *testing.T) {
	lib := library(t)
	warm, err := NewCatalog(backend.NewHeadless(), lib, WithWorkers(3))
	require.NoError(t, err)
	warm.Release()

	before := runtime.NumGoroutine()
	for range 5 {
		c, err := NewCatalog(backend.NewHeadless(), lib, WithWorkers(3))
		require.NoError(t, err)
		c.Release()
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+1)
}

func TestCatalogFallsBackToBypass(t *testing.T) {
	b := backend.NewHeadless(backend.WithFailingPrograms(shader.XBRUpscaler, shader.CRTFilter))
	c, err := NewCatalog(b, library(t))
	require.NoError(t, err)

	assert.Equal(t, shader.BypassUpscaler, c.Upscaler(UpscalerXBR).Name())
	assert.Equal(t, shader.BypassFilter, c.Filter(FilterCRT).Name())
	assert.Equal(t, shader.EPXUpscaler, c.Upscaler(UpscalerEPX).Name())

	assert.ErrorIs(t, c.CheckUpscaler(UpscalerXBR), ErrKernelUnavailable)
	assert.ErrorIs(t, c.CheckFilter(FilterCRT), ErrKernelUnavailable)
	assert.False(t, c.UpscalerSlots()[UpscalerXBR].Available)
	assert.False(t, c.FilterSlots()[FilterCRT].Available)
}

func TestCatalogOutOfRange(t *testing.T) {
	c, err := NewCatalog(backend.NewHeadless(), library(t))
	require.NoError(t, err)

	assert.Equal(t, shader.BypassUpscaler, c.Upscaler(-1).Name())
	assert.Equal(t, shader.BypassFilter, c.Filter(NumFilters).Name())
	assert.ErrorIs(t, c.CheckUpscaler(NumUpscalers), ErrKernelUnavailable)
	assert.ErrorIs(t, c.CheckFilter(-1), ErrKernelUnavailable)
}

func TestCatalogBypassFailureIsFatal(t *testing.T) {
	_, err := NewCatalog(backend.NewHeadless(backend.WithFailingPrograms(shader.BypassUpscaler)), library(t))
	assert.ErrorIs(t, err, ErrKernelUnavailable)

	_, err = NewCatalog(backend.NewHeadless(backend.WithFailingPrograms(shader.BypassFilter)), library(t))
	assert.ErrorIs(t, err, ErrKernelUnavailable)
}

func TestCatalogDisablesRejectedPrograms(t *testing.T) {
	lib, err := shader.NewLibrary(shader.WithProgram(shader.EPXUpscaler, "fn nothing() {}"))
	require.NoError(t, err)

	c, err := NewCatalog(backend.NewHeadless(), lib)
	require.NoError(t, err)
	assert.False(t, c.UpscalerSlots()[UpscalerEPX].Available)
}

func TestCatalogTargetSize(t *testing.T) {
	c, err := NewCatalog(backend.NewHeadless(), library(t), WithTargetSize(common.Extent{Width: 256, Height: 128}))
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{16, 8, 1}, c.Upscaler(UpscalerBypass).Workgroups())
}

func TestCatalogAttachPreBlur(t *testing.T) {
	b := backend.NewHeadless()
	c, err := NewCatalog(b, library(t))
	require.NoError(t, err)

	blurred := texture(t, b, "blurred", 16)
	c.AttachPreBlur(blurred)

	src, dst := texture(t, b, "upscaled", 16), texture(t, b, "filtered", 16)
	frame, err := b.AcquireFrame()
	require.NoError(t, err)
	require.NoError(t, c.Filter(FilterScanline).Apply(frame, src, dst))
	frame.Discard()

	d := b.Frames()[0].Dispatches()
	require.Len(t, d, 1)
	assert.Equal(t, "blurred", d[0].PreBlur)
	assert.NotEmpty(t, d[0].Weights)
}
