package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/docker/go-units"

	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

const (
	replPrompt   = "\033[32mbb>\033[0m "
	replSamples  = 16
	replLineWrap = 100
)

const replHelp = `formulas are compiled and played as soon as they are entered
:mode classic|complex  switch engine and recompile
:play :pause           control playback
:rate N                logical sample rate
:reset                 restart t and clear variables
:presets               list presets
:preset N              load preset N
:export FILE [SEC]     render the current program to a wav file
:vars                  show complex mode variables
:q                     quit`

func runREPL(ctx context.Context, cfg appConfig) error {
	s, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	l, err := readline.NewEx(&readline.Config{
		Prompt:            replPrompt,
		HistoryFile:       filepath.Join(os.TempDir(), ".bytebeat-history.tmp"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	out := l.Stdout()
	if st := s.vm.Status(); st.Source != "" {
		report(out, s.vm)
	}
	s.player.Play()
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := replCommand(out, s, line); quit {
				return nil
			}
			continue
		}
		_ = s.vm.Compile(line)
		report(out, s.vm)
	}
}

func replCommand(out io.Writer, s *session, line string) bool {
	fields := strings.Fields(line)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch fields[0] {
	case ":q", ":quit", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprintln(out, replHelp)
	case ":mode":
		m, err := rpn.ParseMode(arg(1))
		if err != nil {
			fmt.Fprintln(out, errStyle.Render(err.Error()))
			return false
		}
		_ = s.vm.SetMode(m)
		report(out, s.vm)
	case ":play":
		s.player.Play()
	case ":pause":
		s.player.Pause()
	case ":reset":
		s.player.Seek(0)
		s.vm.Reset()
	case ":rate":
		n, err := strconv.Atoi(arg(1))
		if err != nil {
			fmt.Fprintf(out, "rates: %v\n", bbruntime.Rates)
			return false
		}
		s.player.SetRate(n)
		fmt.Fprintf(out, "rate %d Hz\n", s.player.Rate())
	case ":presets":
		for i, p := range s.cfg.presets {
			fmt.Fprintf(out, "%2d  %-24s %-8s %5d  %s\n", i, p.Title, p.Mode, p.Rate, firstLine(p.Code, 40))
		}
	case ":preset":
		i, err := strconv.Atoi(arg(1))
		if err != nil || i < 0 || i >= len(s.cfg.presets) {
			fmt.Fprintf(out, "preset index 0..%d\n", len(s.cfg.presets)-1)
			return false
		}
		if err := s.applyPreset(s.cfg.presets[i]); err != nil {
			fmt.Fprintln(out, errStyle.Render(err.Error()))
			return false
		}
		report(out, s.vm)
	case ":export":
		path := arg(1)
		if path == "" {
			fmt.Fprintln(out, "usage: :export FILE [SECONDS]")
			return false
		}
		secs, _ := strconv.Atoi(arg(2))
		if secs <= 0 {
			secs = s.cfg.exportSeconds
		}
		n, err := bbruntime.ExportWAV(path, s.vm.Program(), bbruntime.ExportOptions{Rate: s.player.Rate(), Seconds: secs})
		if err != nil {
			fmt.Fprintln(out, errStyle.Render(err.Error()))
			return false
		}
		fmt.Fprintf(out, "wrote %s (%s)\n", path, units.HumanSize(float64(n)))
	case ":vars":
		r := s.vm.Snapshot()
		if r == nil {
			return false
		}
		for name, v := range r.Vars() {
			fmt.Fprintf(out, "%s = %v\n", name, v)
		}
	default:
		fmt.Fprintf(out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// report prints the compiled program and its first samples, or the error
// with a caret under the failing column.
func report(out io.Writer, vm *bbruntime.VM) {
	st := vm.Status()
	if !st.Valid {
		var pe *parser.Error
		if errors.As(st.Err, &pe) && pe.Pos >= 0 {
			line, col := pe.LineCol(st.Source)
			src := strings.Split(st.Source, "\n")
			if line-1 < len(src) {
				fmt.Fprintln(out, "  "+src[line-1])
				fmt.Fprintln(out, "  "+strings.Repeat(" ", col-1)+errStyle.Render("^ "+st.Message()))
				return
			}
		}
		fmt.Fprintln(out, errStyle.Render(st.Message()))
		return
	}
	prog := vm.Program()
	fmt.Fprintln(out, statusStyle.Render(parser.Wrap(prog.String(), replLineWrap)))
	r := bbruntime.NewRunner(prog)
	samples := make([]string, replSamples)
	for t := range samples {
		samples[t] = strconv.Itoa(int(r.Eval(uint32(t))))
	}
	fmt.Fprintln(out, okStyle.Render(strings.Join(samples, " ")))
}

func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
