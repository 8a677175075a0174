package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gosuda/bytebeat/parser"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

// settle is how long the watcher waits for an editor to finish writing.
const settle = 10 * time.Millisecond

// runWatch plays cfg.file and recompiles it whenever it changes on disk. A
// broken save keeps the last good program playing.
func runWatch(ctx context.Context, cfg appConfig) error {
	if cfg.file == "" {
		return errors.New("watch needs -file")
	}
	s, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(cfg.file); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.file, err)
	}

	logStatus(s.vm, cfg.file)
	s.player.Play()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			slog.Debug("file event", "op", ev.Op.String(), "name", ev.Name)
			drain(watcher)
			src, err := readSourceFile(cfg.file)
			if err != nil {
				slog.Warn("reload failed", "err", err)
			} else if src != s.vm.Status().Source {
				_ = s.vm.Compile(src)
				logStatus(s.vm, cfg.file)
			}
			// editors that save by rename drop the watch
			_ = watcher.Add(cfg.file)
		}
	}
}

// drain swallows the burst of events a single save produces.
func drain(w *fsnotify.Watcher) {
	for {
		time.Sleep(settle)
		select {
		case <-w.Events:
		default:
			return
		}
	}
}

func logStatus(vm *bbruntime.VM, file string) {
	st := vm.Status()
	if st.Valid {
		prog := vm.Program()
		slog.Info("compiled", "file", file, "engine", prog.Mode, "statements", len(prog.Instructions), "vars", prog.Symbols.Len())
		return
	}
	var pe *parser.Error
	if errors.As(st.Err, &pe) && pe.Pos >= 0 {
		line, col := pe.LineCol(st.Source)
		slog.Warn("compile failed, keeping last program", "file", file, "line", line, "col", col, "err", st.Message())
		return
	}
	slog.Warn("compile failed, keeping last program", "file", file, "err", st.Message())
}
