package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 60, cfg.Camera.AnimationSteps)
	assert.Equal(t, "pal", cfg.Emulator.Standard)
	assert.True(t, cfg.Video.Enabled)
	assert.True(t, cfg.Video.DrawEmulatorTexture)
	assert.Equal(t, float32(1.0), cfg.Video.BlurRadius)
}

func TestParseTOMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
[window]
width = 800

[video]
upscaler = 2
filter = 3
blur_radius = 2.5
scanlines = true
dot_mask = 9

[emulator]
standard = "NTSC"
`)
	cfg, err := Parse(data, ".toml")
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 768, cfg.Window.Height)
	assert.Equal(t, 2, cfg.Video.Upscaler)
	assert.Equal(t, 3, cfg.Video.Filter)
	assert.Equal(t, float32(2.5), cfg.Video.BlurRadius)
	assert.True(t, cfg.Video.Scanlines)
	assert.Equal(t, MaxDotMask, cfg.Video.DotMask)
	assert.Equal(t, "ntsc", cfg.Emulator.Standard)
	// Untouched by the file.
	assert.True(t, cfg.Video.Enabled)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
video:
  keep_aspect_ratio: true
  fullscreen: true
  mask_brightness: 3.0
camera:
  eye_z: 1.5
  animation_steps: 0
`)
	cfg, err := Parse(data, ".yml")
	require.NoError(t, err)

	assert.True(t, cfg.Video.KeepAspectRatio)
	assert.True(t, cfg.Video.Fullscreen)
	assert.Equal(t, float32(1), cfg.Video.MaskBrightness)
	assert.Equal(t, float32(1.5), cfg.Camera.EyeZ)
	assert.Equal(t, 60, cfg.Camera.AnimationSteps)
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), ".json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseRejectsBrokenTOML(t *testing.T) {
	_, err := Parse([]byte("[video\nupscaler = "), ".toml")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c64screen.toml")
	cfg := Default()
	cfg.Video.Filter = 2
	cfg.Video.BloomFactor = 1.25
	cfg.Window.Background = "/tmp/wall.png"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c64screen.yaml")
	cfg := Default()
	cfg.Emulator.Standard = "ntsc"
	cfg.Video.DotMask = 2
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	err := Default().Save(filepath.Join(t.TempDir(), "c64screen.ini"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSettingsUpdateNormalizes(t *testing.T) {
	s := NewSettings(DefaultVideo())
	v0 := s.Version()

	s.Update(func(v *Video) {
		v.ScanlineWeight = 4
		v.Filter = 1
	})

	snap := s.Snapshot()
	assert.Equal(t, float32(1), snap.ScanlineWeight)
	assert.Equal(t, 1, snap.Filter)
	assert.Equal(t, v0+1, s.Version())
}

func TestNormalizeCapsBlurRadii(t *testing.T) {
	cfg, err := Parse([]byte("[video]\nblur_radius = 50000\nbloom_radius = -1\n"), ".toml")
	require.NoError(t, err)
	assert.Equal(t, float32(MaxBlurRadius), cfg.Video.BlurRadius)
	assert.Equal(t, float32(0), cfg.Video.BloomRadius)

	s := NewSettings(DefaultVideo())
	s.Update(func(v *Video) { v.BloomRadius = 1e6 })
	assert.Equal(t, float32(MaxBlurRadius), s.Snapshot().BloomRadius)
}

func TestSettingsSnapshotIsACopy(t *testing.T) {
	s := NewSettings(DefaultVideo())
	snap := s.Snapshot()
	snap.Filter = 3
	assert.Equal(t, 0, s.Snapshot().Filter)
}

func TestSettingsConcurrentAccess(t *testing.T) {
	s := NewSettings(DefaultVideo())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(func(v *Video) { v.BloomRadius += 1 })
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, float32(801), s.Snapshot().BloomRadius)
	assert.Equal(t, uint64(800), s.Version())
}

func TestWatchReloadsVideoSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c64screen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[video]\nfilter = 1\n"), 0o644))

	s := NewSettings(DefaultVideo())
	w, err := Watch(path, s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("[video]\nfilter = 2\nscanlines = true\n"), 0o644))

	assert.Eventually(t, func() bool {
		v := s.Snapshot()
		return v.Filter == 2 && v.Scanlines
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), 1)
}

func TestWatchMovesCameraEye(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c64screen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[camera]\neye_z = 6\n"), 0o644))

	eyes := make(chan Camera, 8)
	w, err := Watch(path, NewSettings(DefaultVideo()), WithCameraHandler(func(c Camera) { eyes <- c }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	// Video-only edits leave the eye alone.
	require.NoError(t, os.WriteFile(path, []byte("[camera]\neye_z = 6\n[video]\nfilter = 2\n"), 0o644))
	require.Eventually(t, func() bool { return w.Reloads() >= 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, eyes)

	require.NoError(t, os.WriteFile(path, []byte("[camera]\neye_x = 0.5\neye_z = 2\n"), 0o644))
	select {
	case c := <-eyes:
		assert.Equal(t, float32(0.5), c.EyeX)
		assert.Equal(t, float32(2), c.EyeZ)
	case <-time.After(5 * time.Second):
		t.Fatal("camera handler not called")
	}
}

func TestWatchIgnoresBrokenRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c64screen.toml")
	require.NoError(t, os.WriteFile(path, []byte("[video]\nfilter = 1\n"), 0o644))

	v := DefaultVideo()
	v.Filter = 3
	s := NewSettings(v)
	w, err := Watch(path, s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("[video\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 3, s.Snapshot().Filter)
}
