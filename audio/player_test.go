package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

type captureBackend struct {
	mu     sync.Mutex
	opened bool
	closed bool
	blocks [][]int16
	writes int
	fail   error
}

func (c *captureBackend) Name() string { return "capture" }

func (c *captureBackend) Open(deviceRate, frames int) error {
	c.opened = true
	return nil
}

func (c *captureBackend) Write(samples []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.fail != nil {
		return c.fail
	}
	c.blocks = append(c.blocks, append([]int16(nil), samples...))
	return nil
}

func (c *captureBackend) Close() error {
	c.closed = true
	return nil
}

func (c *captureBackend) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func waitBlocks(t *testing.T, p *Player, n uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.Blocks() < n {
		if time.Now().After(deadline) {
			t.Fatalf("player rendered only %d blocks", p.Blocks())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestToS16(t *testing.T) {
	if got := ToS16(255, 1); got != 32767 {
		t.Fatalf("unexpected max: %d", got)
	}
	if got := ToS16(0, 1); got != -32767 {
		t.Fatalf("unexpected min: %d", got)
	}
	if got := ToS16(255, 0.5); got != 16383 {
		t.Fatalf("unexpected scaled value: %d", got)
	}
}

func TestPlayerSilentUntilPlaying(t *testing.T) {
	vm := bbruntime.New(rpn.Classic)
	if err := vm.Compile("255"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	out := &captureBackend{}
	p := NewPlayer(vm, out, Options{Rate: 8000, Frames: 64})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitBlocks(t, p, 2)
	if p.T() != 0 {
		t.Fatalf("time advanced while paused: %d", p.T())
	}
	p.Play()
	before := p.Blocks()
	waitBlocks(t, p, before+3)
	if err := p.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !out.opened || !out.closed {
		t.Fatalf("backend not opened and closed")
	}
	first := out.blocks[0]
	last := out.blocks[len(out.blocks)-1]
	if first[0] != 0 || last[0] != 32767 {
		t.Fatalf("unexpected samples: paused=%d playing=%d", first[0], last[0])
	}
	if p.T() == 0 {
		t.Fatalf("time did not advance while playing")
	}
	scope := p.Scope()
	if scope[len(scope)-1] != 1 {
		t.Fatalf("scope not fed: %v", scope[len(scope)-1])
	}
}

func TestPlayerScopeIgnoresVolume(t *testing.T) {
	vm := bbruntime.New(rpn.Classic)
	if err := vm.Compile("t&1?255:0"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	out := &captureBackend{}
	p := NewPlayer(vm, out, Options{Rate: 44100, Volume: 0.25, Frames: 64})
	p.Play()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitBlocks(t, p, 3)
	p.Stop()
	last := out.blocks[len(out.blocks)-1]
	if last[0] != ToS16(0, 0.25) || last[1] != ToS16(255, 0.25) {
		t.Fatalf("volume not applied: %d %d", last[0], last[1])
	}
	scope := p.Scope()
	for _, v := range scope[len(scope)-8:] {
		if v != -1 {
			t.Fatalf("scope must hold unscaled levels, got %v", v)
		}
	}
}

func TestPlayerSilentWhenInvalid(t *testing.T) {
	vm := bbruntime.New(rpn.Classic)
	if err := vm.Compile("255"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	_ = vm.Compile("255+")
	out := &captureBackend{}
	p := NewPlayer(vm, out, Options{Frames: 32})
	p.Play()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitBlocks(t, p, 2)
	p.Stop()
	for _, v := range out.blocks[0] {
		if v != 0 {
			t.Fatalf("invalid program must be silent")
		}
	}
}

func TestPlayerControls(t *testing.T) {
	p := NewPlayer(bbruntime.New(rpn.Classic), &Null{}, Options{})
	if p.Rate() != 8000 || p.Volume() != 1 {
		t.Fatalf("unexpected defaults: %d %v", p.Rate(), p.Volume())
	}
	p.SetRate(44100)
	if p.Rate() != 44100 {
		t.Fatalf("rate not set")
	}
	p.SetRate(1234)
	if p.Rate() != 8000 {
		t.Fatalf("unknown rate must fall back")
	}
	p.SetVolume(2)
	if p.Volume() != 1 {
		t.Fatalf("volume must clamp")
	}
	if !p.Toggle() || !p.Playing() || p.Toggle() {
		t.Fatalf("toggle broken")
	}
}

func TestPlayerSeek(t *testing.T) {
	vm := bbruntime.New(rpn.Classic)
	if err := vm.Compile("t"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	out := &captureBackend{}
	p := NewPlayer(vm, out, Options{Rate: 44100, Frames: 16})
	p.Play()
	p.Seek(1000)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitBlocks(t, p, 1)
	p.Stop()
	want := ToS16(uint8(1000&0xFF), 1)
	if out.blocks[0][0] != want {
		t.Fatalf("seek ignored: %d want %d", out.blocks[0][0], want)
	}
}

func TestPlayerWriteError(t *testing.T) {
	out := &captureBackend{fail: errors.New("device gone")}
	p := NewPlayer(bbruntime.New(rpn.Classic), out, Options{Frames: 16})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for out.attempts() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := p.Stop(); err == nil || !errors.Is(err, out.fail) {
		t.Fatalf("write error not reported: %v", err)
	}
}
