package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/gosuda/bytebeat/parser"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

// scanTicks is how many ticks a preset is rendered to look for silence.
const scanTicks = 1 << 14

func main() {
	presets := bbruntime.BuiltinPresets()
	source := "builtin"
	if len(os.Args) > 1 {
		var err error
		presets, err = bbruntime.LoadPresets(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "read presets: %v\n", err)
			os.Exit(1)
		}
		source = os.Args[1]
	}

	var failed, silent []string
	for i, p := range presets {
		prog, err := p.Compile()
		if err != nil {
			failed = append(failed, fmt.Sprintf("%d %s: %s", i, p.Title, describe(p.Code, err)))
			continue
		}
		if isConstant(bbruntime.NewRunner(prog)) {
			silent = append(silent, fmt.Sprintf("%d %s", i, p.Title))
		}
	}
	dups := duplicates(presets)

	fmt.Printf("%s presets: %d\n", source, len(presets))
	fmt.Printf("compile failures: %d\n", len(failed))
	for _, n := range failed {
		fmt.Println("  - " + n)
	}
	fmt.Printf("silent: %d\n", len(silent))
	for _, n := range silent {
		fmt.Println("  ~ " + n)
	}
	fmt.Printf("duplicate titles: %d\n", len(dups))
	for _, n := range dups {
		fmt.Println("  = " + n)
	}
	if len(failed) > 0 {
		os.Exit(1)
	}
}

func describe(src string, err error) string {
	var pe *parser.Error
	if errors.As(err, &pe) && pe.Pos >= 0 {
		line, col := pe.LineCol(src)
		return fmt.Sprintf("line %d col %d: %v", line, col, err)
	}
	return err.Error()
}

func isConstant(r *bbruntime.Runner) bool {
	first := r.Eval(0)
	for t := uint32(1); t < scanTicks; t++ {
		if r.Eval(t) != first {
			return false
		}
	}
	return true
}

func duplicates(presets []bbruntime.Preset) []string {
	seen := map[string]int{}
	for _, p := range presets {
		seen[p.Title]++
	}
	out := make([]string, 0)
	for n, c := range seen {
		if c > 1 {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
