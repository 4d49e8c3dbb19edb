// Package config loads c64screen settings from TOML or YAML files and exposes the live video
// parameters that control paths may change while frames are being rendered.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when a config file extension is neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config is the complete c64screen configuration.
type Config struct {
	Window   Window   `toml:"window" yaml:"window"`
	Video    Video    `toml:"video" yaml:"video"`
	Camera   Camera   `toml:"camera" yaml:"camera"`
	Emulator Emulator `toml:"emulator" yaml:"emulator"`
}

// Window holds the surface and presentation settings.
type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	VSync  bool   `toml:"vsync" yaml:"vsync"`
	// Background is an optional PNG or JPEG drawn behind the cube.
	Background string `toml:"background" yaml:"background"`
}

// Video holds every parameter the compositor reads once per frame.
type Video struct {
	Upscaler int `toml:"upscaler" yaml:"upscaler"`
	Filter   int `toml:"filter" yaml:"filter"`

	BlurRadius  float32 `toml:"blur_radius" yaml:"blur_radius"`
	BloomRadius float32 `toml:"bloom_radius" yaml:"bloom_radius"`
	BloomFactor float32 `toml:"bloom_factor" yaml:"bloom_factor"`

	Scanlines          bool    `toml:"scanlines" yaml:"scanlines"`
	ScanlineBrightness float32 `toml:"scanline_brightness" yaml:"scanline_brightness"`
	ScanlineWeight     float32 `toml:"scanline_weight" yaml:"scanline_weight"`

	DotMask        int     `toml:"dot_mask" yaml:"dot_mask"`
	MaskBrightness float32 `toml:"mask_brightness" yaml:"mask_brightness"`

	KeepAspectRatio     bool `toml:"keep_aspect_ratio" yaml:"keep_aspect_ratio"`
	Fullscreen          bool `toml:"fullscreen" yaml:"fullscreen"`
	Enabled             bool `toml:"enabled" yaml:"enabled"`
	DrawEmulatorTexture bool `toml:"draw_emulator_texture" yaml:"draw_emulator_texture"`
}

// Camera holds the initial eye position and the animation cadence.
type Camera struct {
	EyeX float32 `toml:"eye_x" yaml:"eye_x"`
	EyeY float32 `toml:"eye_y" yaml:"eye_y"`
	EyeZ float32 `toml:"eye_z" yaml:"eye_z"`
	// AnimationSteps is the number of frames every animation takes.
	AnimationSteps int `toml:"animation_steps" yaml:"animation_steps"`
}

// Emulator selects the emulator side settings.
type Emulator struct {
	// Standard is "pal" or "ntsc".
	Standard string `toml:"standard" yaml:"standard"`
}

// MaxBlurRadius caps blur_radius and bloom_radius.
const MaxBlurRadius = 16

// MaxDotMask is the highest dot mask mode the fragment stage understands.
const MaxDotMask = 2

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: Window{
			Title:  "c64screen",
			Width:  1024,
			Height: 768,
			VSync:  true,
		},
		Video: DefaultVideo(),
		Camera: Camera{
			AnimationSteps: 60,
		},
		Emulator: Emulator{
			Standard: "pal",
		},
	}
}

// DefaultVideo returns the default per-frame video parameters.
//
// Returns:
//   - Video: the default video parameters
func DefaultVideo() Video {
	return Video{
		Upscaler:            0,
		Filter:              0,
		BlurRadius:          1.0,
		BloomRadius:         1.0,
		BloomFactor:         0.0,
		Scanlines:           false,
		ScanlineBrightness:  0.55,
		ScanlineWeight:      0.11,
		DotMask:             0,
		MaskBrightness:      0.7,
		KeepAspectRatio:     false,
		Fullscreen:          false,
		Enabled:             true,
		DrawEmulatorTexture: true,
	}
}

// Load reads a configuration file on top of the defaults.
// The format is chosen by extension: .toml, or .yaml/.yml.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the defaults overlaid with the file contents, normalized
//   - error: an error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes on top of the defaults.
//
// Parameters:
//   - data: the raw file contents
//   - ext: the file extension including the dot, used to pick the decoder
//
// Returns:
//   - Config: the decoded and normalized configuration
//   - error: ErrUnsupportedFormat or a decoding error
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration as TOML or YAML, chosen by the file extension.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: ErrUnsupportedFormat, or an error if encoding or writing fails
func (c Config) Save(path string) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Normalize clamps every field into its valid range.
func (c *Config) Normalize() {
	def := Default()
	if c.Window.Width <= 0 {
		c.Window.Width = def.Window.Width
	}
	if c.Window.Height <= 0 {
		c.Window.Height = def.Window.Height
	}
	c.Window.Title = common.Coalesce(c.Window.Title, def.Window.Title)
	if c.Camera.AnimationSteps <= 0 {
		c.Camera.AnimationSteps = def.Camera.AnimationSteps
	}
	c.Emulator.Standard = common.Coalesce(strings.ToLower(c.Emulator.Standard), def.Emulator.Standard)
	c.Video.Normalize()
}

// Normalize clamps the video parameters into their valid ranges.
// Kernel indices are left alone; the catalog falls back to bypass for unknown slots.
func (v *Video) Normalize() {
	v.BlurRadius = common.Clamp(v.BlurRadius, 0, MaxBlurRadius)
	v.BloomRadius = common.Clamp(v.BloomRadius, 0, MaxBlurRadius)
	v.BloomFactor = common.Clamp(v.BloomFactor, 0, 8)
	v.ScanlineBrightness = common.Clamp(v.ScanlineBrightness, 0, 1)
	v.ScanlineWeight = common.Clamp(v.ScanlineWeight, 0, 1)
	v.DotMask = common.Clamp(v.DotMask, 0, MaxDotMask)
	v.MaskBrightness = common.Clamp(v.MaskBrightness, 0, 1)
}
