//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

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
}

// vm is the page's single player state; the page drives it from its audio
// worklet callback.
var vm = bbruntime.New(rpn.Classic)

func encode(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// compile(src, mode) installs src into the page VM and returns the status
// as JSON. A failed compile keeps the previous program for render.
func compile(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return encode(compileResult{Error: "compile requires a source string", Position: -1})
	}
	if len(args) > 1 {
		m, err := rpn.ParseMode(args[1].String())
		if err != nil {
			return encode(compileResult{Error: err.Error(), Position: -1})
		}
		if m != vm.Mode() {
			_ = vm.SetMode(m)
		}
	}
	res := compileResult{Position: -1}
	if err := vm.Compile(args[0].String()); err != nil {
		res.Error = err.Error()
		var pe *parser.Error
		if errors.As(err, &pe) {
			res.Position = pe.Pos
		}
		return encode(res)
	}
	res.Valid = true
	res.RPN = vm.Program().String()
	return encode(res)
}

var clock = bbruntime.NewClock(8000, bbruntime.DeviceRate)

// render(array, rate) fills a Uint8Array at 44100 Hz from the running
// clock and returns the tick reached. Invalid programs render silence and
// hold the clock.
func render(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	dst := args[0]
	if len(args) > 1 {
		clock.SetRate(bbruntime.NearestRate(args[1].Int()), bbruntime.DeviceRate)
	}
	buf := make([]uint8, dst.Length())
	if vm.Valid() {
		vm.Fill(buf, clock)
	} else {
		for i := range buf {
			buf[i] = 128
		}
	}
	js.CopyBytesToJS(dst, buf)
	return js.ValueOf(int(clock.T))
}

// seek(t) moves playback to tick t; seek(0) also clears variables.
func seek(this js.Value, args []js.Value) any {
	clock.Reset()
	if len(args) > 0 {
		clock.T = uint32(args[0].Int())
	}
	if clock.T == 0 {
		vm.Reset()
	}
	return nil
}

// exportWav(seconds, rate) returns a complete WAV file of the installed
// program as a Uint8Array.
func exportWav(this js.Value, args []js.Value) any {
	prog := vm.Program()
	if prog == nil {
		return js.Null()
	}
	opt := bbruntime.ExportOptions{Rate: 8000}
	if len(args) > 0 {
		opt.Seconds = args[0].Int()
	}
	if len(args) > 1 {
		opt.Rate = bbruntime.NearestRate(args[1].Int())
	}
	var w sliceWriter
	if _, err := bbruntime.WriteWAV(&w, bbruntime.NewRunner(prog), opt); err != nil {
		return js.Null()
	}
	out := js.Global().Get("Uint8Array").New(len(w))
	js.CopyBytesToJS(out, w)
	return out
}

// preview(src, mode, n) compiles src without installing it and returns the
// first n samples.
func preview(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.Null()
	}
	m, err := rpn.ParseMode(args[1].String())
	if err != nil {
		return js.Null()
	}
	prog, err := bytebeat.Compile(args[0].String(), m)
	if err != nil {
		return js.Null()
	}
	samples := bytebeat.Render(prog, 0, args[2].Int())
	out := js.Global().Get("Uint8Array").New(len(samples))
	js.CopyBytesToJS(out, samples)
	return out
}

type sliceWriter []byte

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}

func main() {
	js.Global().Set("bytebeatCompile", js.FuncOf(compile))
	js.Global().Set("bytebeatRender", js.FuncOf(render))
	js.Global().Set("bytebeatSeek", js.FuncOf(seek))
	js.Global().Set("bytebeatExportWav", js.FuncOf(exportWav))
	js.Global().Set("bytebeatPreview", js.FuncOf(preview))
	select {}
}
