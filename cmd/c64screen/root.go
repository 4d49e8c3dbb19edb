package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/c64screen/common"
	"github.com/Carmen-Shannon/c64screen/config"
	"github.com/Carmen-Shannon/c64screen/emulator"
	"github.com/Carmen-Shannon/c64screen/engine"
	"github.com/Carmen-Shannon/c64screen/engine/camera"
	"github.com/Carmen-Shannon/c64screen/engine/renderer"
	"github.com/Carmen-Shannon/c64screen/engine/renderer/backend"
	"github.com/Carmen-Shannon/c64screen/engine/window"
	"github.com/spf13/cobra"
)

// options holds the command line flags of the root command.
type options struct {
	configPath string
	headless   bool
	frames     uint64
	standard   string
	background string
	vsync      bool
	verbose    bool
	profile    bool
	validate   bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "c64screen",
		Short:         "Display a C64 screen through upscaling, CRT filters and a 3D cube transition",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML or YAML config file, watched for [video] changes")
	flags.BoolVar(&opts.headless, "headless", false, "render against the recording backend without a window")
	flags.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames (0 = run until closed)")
	flags.StringVar(&opts.standard, "standard", "pal", "video standard: pal or ntsc")
	flags.StringVar(&opts.background, "background", "", "image drawn behind the cube")
	flags.BoolVar(&opts.vsync, "vsync", true, "wait for vertical blank when presenting")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log per-frame diagnostics")
	flags.BoolVar(&opts.profile, "profile", false, "log frame rate and memory statistics every second")
	flags.BoolVar(&opts.validate, "validate-shaders", false, "with --headless, validate every shader with naga")

	cmd.AddCommand(newInitConfigCommand())
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write the default configuration to a .toml or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}

// loadConfig reads the config file, if any, and applies the flags the user set explicitly on top of it.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("standard") {
		cfg.Emulator.Standard = opts.standard
	}
	if flags.Changed("background") {
		cfg.Window.Background = opts.background
	}
	if flags.Changed("vsync") {
		cfg.Window.VSync = opts.vsync
	}
	cfg.Normalize()
	return cfg, nil
}

func run(cmd *cobra.Command, opts *options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	log := common.Logger()

	// ── Config ──────────────────────────────────────────────────────────
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	standard, err := emulator.ParseVideoStandard(cfg.Emulator.Standard)
	if err != nil {
		return err
	}

	// ── Source + Camera ─────────────────────────────────────────────────
	pattern := emulator.NewTestPattern(emulator.WithStandard(standard))
	cam := camera.NewCamera(
		camera.WithAnimationSteps(cfg.Camera.AnimationSteps),
		camera.WithEye(cfg.Camera.EyeX, cfg.Camera.EyeY, cfg.Camera.EyeZ),
	)

	settings := config.NewSettings(cfg.Video)
	if opts.configPath != "" {
		w, err := config.Watch(opts.configPath, settings, config.WithCameraHandler(func(c config.Camera) {
			cam.SetEye(c.EyeX, c.EyeY, c.EyeZ)
		}))
		if err != nil {
			log.Warn("config hot reload disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	// ── Window + Backend ────────────────────────────────────────────────
	var win window.Window
	var b backend.Backend
	if opts.headless {
		headlessOpts := []backend.HeadlessBuilderOption{
			backend.WithSurfaceSize(uint32(cfg.Window.Width), uint32(cfg.Window.Height)),
			backend.WithFrameHistory(8),
		}
		if opts.validate {
			headlessOpts = append(headlessOpts, backend.WithShaderValidation())
		}
		b = backend.NewHeadless(headlessOpts...)
	} else {
		win = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithWidth(cfg.Window.Width),
			window.WithHeight(cfg.Window.Height),
			window.WithFullscreen(cfg.Video.Fullscreen),
		)
		defer win.Close()
		b = backend.NewWGPU(win.SurfaceDescriptor(), uint32(win.Width()), uint32(win.Height()),
			backend.WithVSync(cfg.Window.VSync),
		)
	}
	defer b.Release()

	// ── Pipeline ────────────────────────────────────────────────────────
	var resOpts []renderer.ResourcesBuilderOption
	if cfg.Window.Background != "" {
		resOpts = append(resOpts, renderer.WithBackgroundPath(cfg.Window.Background))
	}
	res, err := renderer.BuildResources(renderer.PipelineContext{
		Backend:     b,
		Camera:      cam,
		Standard:    standard,
		BloomRadius: cfg.Video.BloomRadius,
	}, resOpts...)
	if err != nil {
		return err
	}

	comp := renderer.NewCompositor(res, pattern, renderer.WithSettings(settings))
	defer comp.Release()
	if err := comp.SelectUpscaler(cfg.Video.Upscaler); err != nil {
		log.Warn("configured upscaler unavailable, using bypass", "error", err)
		_ = comp.SelectUpscaler(0)
	}
	if err := comp.SelectFilter(cfg.Video.Filter); err != nil {
		log.Warn("configured filter unavailable, using bypass", "error", err)
		_ = comp.SelectFilter(0)
	}

	// ── Engine ──────────────────────────────────────────────────────────
	engineOpts := []engine.EngineBuilderOption{
		engine.WithCompositor(comp),
		engine.WithSource(pattern),
		engine.WithTickRate(standard.RefreshRate()),
		engine.WithProfiling(opts.profile),
		engine.WithFrameLimit(opts.frames),
	}
	if win != nil {
		engineOpts = append(engineOpts, engine.WithWindow(win))
	}
	eng := engine.NewEngine(engineOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		eng.Quit()
	}()

	log.Info("starting", "standard", standard, "headless", opts.headless, "frames", opts.frames)
	eng.Run()
	log.Info("stopped", "presented", comp.Frames(), "skipped", comp.Skipped())
	return nil
}
