package bbruntime

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
)

// Preset is a named formula with the rate and engine it was written for.
type Preset struct {
	Title string
	Code  string
	Rate  int
	Mode  rpn.Mode
}

var builtinPresets = []Preset{
	{Title: "42 melody", Code: "t*(42&t>>10)", Rate: 8000},
	{Title: "sierpinski harmony", Code: "t*((t>>12|t>>8)&63&t>>4)", Rate: 8000},
	{Title: "sierpinski", Code: "t&t>>8", Rate: 8000},
	{Title: "descent", Code: "(t*(t>>5|t>>8))>>(t>>16)", Rate: 8000},
	{Title: "variables", Code: "a=t>>10,b=a&7,t*(b+1)&128", Rate: 8000, Mode: rpn.Complex},
	{Title: "string melody", Code: "s='bytebeat',t*s.charCodeAt(t>>11&7)/16", Rate: 8000, Mode: rpn.Complex},
	{Title: "array melody", Code: "n=t>>12&3,t*[1,1.25,1.5,2][n]&128", Rate: 8000, Mode: rpn.Complex},
}

// BuiltinPresets returns a fresh copy of the bundled presets.
func BuiltinPresets() []Preset {
	return append([]Preset(nil), builtinPresets...)
}

// ParsePresets reads Key=Value preset records. A blank line or a repeated
// Title= ends a record; lines starting with whitespace continue Code=.
// Lines starting with '#' or ';' are comments.
func ParsePresets(r io.Reader) ([]Preset, error) {
	var (
		out     []Preset
		cur     Preset
		started bool
		inCode  bool
	)
	flush := func() {
		if started && strings.TrimSpace(cur.Code) != "" {
			if cur.Rate == 0 {
				cur.Rate = Rates[0]
			}
			out = append(out, cur)
		}
		cur, started, inCode = Preset{}, false, false
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if inCode && (raw[0] == ' ' || raw[0] == '\t') {
			cur.Code += "\n" + trimmed
			continue
		}
		key, val, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected Key=Value", line)
		}
		inCode = false
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			flush()
			cur.Title = strings.TrimSpace(val)
		case "code":
			cur.Code = strings.TrimSpace(val)
			inCode = true
		case "rate":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad rate: %w", line, err)
			}
			cur.Rate = NearestRate(n)
		case "mode":
			m, err := rpn.ParseMode(val)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			cur.Mode = m
		default:
			return nil, fmt.Errorf("line %d: unknown key %q", line, key)
		}
		started = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

// WritePresets writes presets in the format ParsePresets reads. Multi-line
// code is written as indented continuation lines.
func WritePresets(w io.Writer, presets []Preset) error {
	bw := bufio.NewWriter(w)
	for i, p := range presets {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "Title=%s\n", p.Title)
		lines := strings.Split(p.Code, "\n")
		fmt.Fprintf(bw, "Code=%s\n", lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(bw, "  %s\n", l)
		}
		fmt.Fprintf(bw, "Rate=%d\n", p.Rate)
		fmt.Fprintf(bw, "Mode=%s\n", p.Mode)
	}
	return bw.Flush()
}

func LoadPresets(path string) ([]Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	defer f.Close()
	ps, err := ParsePresets(f)
	if err != nil {
		return nil, fmt.Errorf("load presets %s: %w", path, err)
	}
	return ps, nil
}

func SavePresets(path string, presets []Preset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	if err := WritePresets(f, presets); err != nil {
		f.Close()
		return fmt.Errorf("save presets %s: %w", path, err)
	}
	return f.Close()
}

// Compile parses the preset with its own mode.
func (p Preset) Compile() (*rpn.Program, error) {
	return parser.ParseProgram(p.Code, p.Mode)
}
