package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

func main() {
	configPath := flag.String("config", "", "config file (default $XDG_CONFIG_HOME/bytebeat/config.toml)")
	ui := flag.String("ui", "auto", "front end: auto|tui|plain|repl|watch")
	engine := flag.String("engine", "", "engine: classic|complex")
	rate := flag.Int("rate", 0, "logical sample rate")
	volume := flag.Float64("volume", 0, "output volume 0..1")
	backend := flag.String("backend", "", "audio backend: portaudio|sdl|null")
	file := flag.String("file", "", "read the formula from this file")
	presetFile := flag.String("presets", "", "preset file")
	preset := flag.Int("preset", -1, "start with preset N")
	seconds := flag.Int("seconds", 0, "plain mode: stop after N seconds")
	logFile := flag.String("log", "", "log file (tui mode logs nowhere by default)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfgPath, explicit := *configPath, *configPath != ""
	if !explicit {
		cfgPath = defaultConfigPath()
	}
	fc, err := loadFileConfig(cfgPath, explicit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	cfg, err := buildConfig(fc, flagValues{
		ui: *ui, engine: *engine, rate: *rate, volume: *volume, backend: *backend,
		file: *file, presets: *presetFile, preset: *preset, seconds: *seconds,
		verbose: *verbose, args: flag.Args(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var logOut io.Writer = os.Stderr
	if cfg.ui == "tui" {
		logOut = io.Discard
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(newLogger(logOut, cfg.verbose))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cfg.ui, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig) error {
	switch cfg.ui {
	case "tui":
		s, err := startSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.close()
		s.player.Play()
		p := tea.NewProgram(newModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	case "plain":
		return runPlain(ctx, cfg)
	case "repl":
		return runREPL(ctx, cfg)
	case "watch":
		return runWatch(ctx, cfg)
	default:
		return fmt.Errorf("unknown front end %q", cfg.ui)
	}
}

type flagValues struct {
	ui, engine, backend, file, presets string
	rate, preset, seconds              int
	volume                             float64
	verbose                            bool
	args                               []string
}

// buildConfig merges the config file with flags and resolves the starting
// formula: positional argument, then -file, then -preset, then the first
// preset.
func buildConfig(fc fileConfig, fv flagValues) (appConfig, error) {
	cfg := appConfig{
		ui:            fv.ui,
		rate:          fc.Rate,
		volume:        fc.Volume,
		backend:       fc.Backend,
		frames:        fc.Frames,
		exportSeconds: fc.ExportSeconds,
		file:          fv.file,
		presetFile:    fc.Presets,
		seconds:       fv.seconds,
		verbose:       fv.verbose,
	}
	engineName := fc.Engine
	if fv.engine != "" {
		engineName = fv.engine
	}
	mode, err := rpn.ParseMode(engineName)
	if err != nil {
		return cfg, err
	}
	cfg.engine = mode
	if fv.rate > 0 {
		cfg.rate = fv.rate
	}
	cfg.rate = bbruntime.NearestRate(cfg.rate)
	if fv.volume > 0 {
		cfg.volume = fv.volume
	}
	if fv.backend != "" {
		cfg.backend = fv.backend
	}
	if fv.presets != "" {
		cfg.presetFile = fv.presets
	}

	cfg.presets = bbruntime.BuiltinPresets()
	if cfg.presetFile != "" {
		ps, err := bbruntime.LoadPresets(cfg.presetFile)
		if err != nil {
			return cfg, err
		}
		cfg.presets = append(ps, cfg.presets...)
	}

	if cfg.ui == "auto" {
		cfg.ui = "plain"
		if term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd())) {
			cfg.ui = "tui"
		}
	}

	switch {
	case len(fv.args) > 0:
		cfg.source = strings.Join(fv.args, " ")
	case cfg.file != "":
		src, err := readSourceFile(cfg.file)
		if err != nil {
			return cfg, err
		}
		cfg.source = src
	case fv.preset >= 0:
		if fv.preset >= len(cfg.presets) {
			return cfg, fmt.Errorf("preset %d out of range (have %d)", fv.preset, len(cfg.presets))
		}
		p := cfg.presets[fv.preset]
		cfg.source, cfg.engine, cfg.rate = p.Code, p.Mode, p.Rate
	case len(cfg.presets) > 0:
		p := cfg.presets[0]
		cfg.source, cfg.engine, cfg.rate = p.Code, p.Mode, p.Rate
	}
	return cfg, nil
}
