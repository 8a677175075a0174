package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/docker/go-units"

	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

const usage = `usage:
  bbwav export -out <file.wav> [-mode classic|complex] [-rate N] [-seconds N] (-code <formula> | -in <file>)
  bbwav import -in <file.wav> [-out <presets.txt>]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	code := fs.String("code", "", "formula source")
	in := fs.String("in", "", "read the formula from this file")
	out := fs.String("out", "", "output wav path")
	mode := fs.String("mode", "classic", "engine: classic|complex")
	rate := fs.Int("rate", 8000, "logical sample rate")
	seconds := fs.Int("seconds", bbruntime.DefaultExportSeconds, "length in seconds")
	quiet := fs.Bool("q", false, "no progress output")
	_ = fs.Parse(args)

	if *out == "" || (*code == "" && *in == "") {
		return fmt.Errorf("need -out and one of -code or -in")
	}
	src := *code
	if *in != "" {
		b, err := os.ReadFile(*in)
		if err != nil {
			return err
		}
		src = strings.TrimRight(string(b), "\r\n")
	}
	m, err := rpn.ParseMode(*mode)
	if err != nil {
		return err
	}
	p := bbruntime.Preset{Code: src, Mode: m, Rate: bbruntime.NearestRate(*rate)}
	prog, err := p.Compile()
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	opt := bbruntime.ExportOptions{Rate: p.Rate, Seconds: *seconds}
	if !*quiet {
		opt.Progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%3d%%", done*100/total)
		}
	}
	n, err := bbruntime.ExportWAV(*out, prog, opt)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	fmt.Printf("exported %s (%s, %d Hz)\n", *out, units.HumanSize(float64(n)), p.Rate)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("in", "", "input wav path")
	out := fs.String("out", "", "append the imported preset to this preset file")
	_ = fs.Parse(args)

	if *in == "" {
		return fmt.Errorf("need -in")
	}
	p, err := bbruntime.ImportWAV(*in)
	if err != nil {
		return err
	}
	if _, err := p.Compile(); err != nil {
		return fmt.Errorf("compile imported program: %w", err)
	}
	if *out == "" {
		fmt.Println(p.Code)
		return nil
	}

	var presets []bbruntime.Preset
	if _, err := os.Stat(*out); err == nil {
		presets, err = bbruntime.LoadPresets(*out)
		if err != nil {
			return err
		}
	}
	presets = append(presets, p)
	if err := bbruntime.SavePresets(*out, presets); err != nil {
		return err
	}
	fmt.Printf("imported %s -> %s (%s of code, %d Hz)\n", *in, *out, units.HumanSize(float64(len(p.Code))), p.Rate)
	return nil
}
