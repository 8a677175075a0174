package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"
	"golang.org/x/term"

	"github.com/gosuda/bytebeat/parser"
)

// runPlain plays the source without a screen, printing a level meter once
// per second. It stops after cfg.seconds, or on interrupt when zero.
func runPlain(ctx context.Context, cfg appConfig) error {
	s, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()
	if err := statusError(s); err != nil {
		return err
	}

	if cfg.seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.seconds)*time.Second)
		defer cancel()
	}
	width := 40
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
			width = w - 40
		}
	}

	slog.Info("playing", "backend", s.player.Backend(), "rate", s.player.Rate(), "engine", s.vm.Mode())
	s.player.Play()
	started := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
			fmt.Printf("\r%-16s t=%-10d %s", units.HumanDuration(time.Since(started)), s.player.T(), renderLevel(s.player.Scope(), width))
		}
	}
}

// statusError turns a failed initial compile into a readable error.
func statusError(s *session) error {
	st := s.vm.Status()
	if st.Valid || st.Err == nil {
		return nil
	}
	var pe *parser.Error
	if errors.As(st.Err, &pe) && pe.Pos >= 0 {
		line, col := pe.LineCol(st.Source)
		return fmt.Errorf("compile: line %d col %d: %w", line, col, st.Err)
	}
	return fmt.Errorf("compile: %w", st.Err)
}
