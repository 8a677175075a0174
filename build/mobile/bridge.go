package mobile

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosuda/bytebeat"
	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

type compileResult struct {
	Valid    bool   `json:"valid"`
	RPN      string `json:"rpn,omitempty"`
	Error    string `json:"error,omitempty"`
	Position int    `json:"position"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

type renderResult struct {
	Samples []int  `json:"samples"`
	Next    uint32 `json:"next"`
	Error   string `json:"error,omitempty"`
}

func encode(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Compile checks src and returns a JSON status:
// {"valid":true,"rpn":"t t 8 >> &","position":-1}
// or {"valid":false,"error":"...","position":3,"line":1,"column":4}.
func Compile(src, mode string) string {
	res := compileResult{Position: -1}
	m, err := rpn.ParseMode(mode)
	if err != nil {
		res.Error = err.Error()
		return encode(res)
	}
	prog, err := bytebeat.Compile(src, m)
	if err != nil {
		res.Error = err.Error()
		var pe *parser.Error
		if errors.As(err, &pe) && pe.Pos >= 0 {
			res.Position = pe.Pos
			res.Line, res.Column = pe.LineCol(src)
		}
		return encode(res)
	}
	res.Valid = true
	res.RPN = prog.String()
	return encode(res)
}

// Render compiles src and returns count samples at 44100 Hz starting from
// logical tick start, stepped at rate. Variables start from zero.
func Render(src, mode string, rate, start, count int) string {
	var res renderResult
	m, err := rpn.ParseMode(mode)
	if err != nil {
		res.Error = err.Error()
		return encode(res)
	}
	if count < 0 || count > bbruntime.DeviceRate*60 {
		res.Error = fmt.Sprintf("sample count %d out of range", count)
		return encode(res)
	}
	prog, err := bytebeat.Compile(src, m)
	if err != nil {
		res.Error = fmt.Sprintf("compile: %v", err)
		return encode(res)
	}
	vm := bbruntime.New(m)
	vm.Load(prog)
	clock := bbruntime.NewClock(bbruntime.NearestRate(rate), bbruntime.DeviceRate)
	clock.T = uint32(start)
	buf := make([]uint8, count)
	vm.Fill(buf, clock)
	res.Samples = make([]int, count)
	for i, v := range buf {
		res.Samples[i] = int(v)
	}
	res.Next = clock.T
	return encode(res)
}

// Presets returns the built-in presets as a JSON array.
func Presets() string {
	type entry struct {
		Title string `json:"title"`
		Code  string `json:"code"`
		Rate  int    `json:"rate"`
		Mode  string `json:"mode"`
	}
	var out []entry
	for _, p := range bbruntime.BuiltinPresets() {
		out = append(out, entry{Title: p.Title, Code: p.Code, Rate: p.Rate, Mode: p.Mode.String()})
	}
	return encode(out)
}
