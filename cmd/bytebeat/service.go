package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gosuda/bytebeat/audio"
	"github.com/gosuda/bytebeat/audio/paaudio"
	"github.com/gosuda/bytebeat/audio/sdlaudio"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openBackend(name string) (audio.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "portaudio", "pa":
		return paaudio.New(), nil
	case "sdl", "sdl2":
		return sdlaudio.New(), nil
	case "null", "none":
		return &audio.Null{Realtime: true}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q (use portaudio|sdl|null)", name)
	}
}

// startSession compiles the initial source and starts audio. A compile
// error only marks the VM invalid so editors can still open; callers read
// it from vm.Status.
func startSession(ctx context.Context, cfg appConfig) (*session, error) {
	vm := bbruntime.New(cfg.engine)
	if cfg.source != "" {
		_ = vm.Compile(cfg.source)
	}

	out, err := openBackend(cfg.backend)
	if err != nil {
		return nil, err
	}
	player := audio.NewPlayer(vm, out, audio.Options{
		Rate:   cfg.rate,
		Volume: cfg.volume,
		Frames: cfg.frames,
	})
	if err := player.Start(ctx); err != nil {
		slog.Warn("audio unavailable, continuing silent", "backend", out.Name(), "err", err)
		player = audio.NewPlayer(vm, &audio.Null{Realtime: true}, audio.Options{
			Rate:   cfg.rate,
			Volume: cfg.volume,
			Frames: cfg.frames,
		})
		if err := player.Start(ctx); err != nil {
			return nil, err
		}
	}
	return &session{cfg: cfg, vm: vm, player: player}, nil
}

func (s *session) close() {
	if err := s.player.Stop(); err != nil {
		slog.Debug("audio stop", "err", err)
	}
}

// applyPreset loads a preset into the engine and the player.
func (s *session) applyPreset(p bbruntime.Preset) error {
	s.player.SetRate(p.Rate)
	s.player.Seek(0)
	prog, err := p.Compile()
	if err != nil {
		return fmt.Errorf("preset %q: %w", p.Title, err)
	}
	s.vm.Load(prog)
	return nil
}

func readSourceFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
