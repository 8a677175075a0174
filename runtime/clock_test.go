package bbruntime

import (
	"testing"

	"github.com/gosuda/bytebeat/rpn"
)

func TestClockStepping(t *testing.T) {
	c := NewClock(DeviceRate, DeviceRate)
	for i := 0; i < 10; i++ {
		c.Advance()
	}
	if c.T != 10 {
		t.Fatalf("unexpected t at device rate: %d", c.T)
	}

	c = NewClock(22050, DeviceRate)
	for i := 0; i < 10; i++ {
		c.Advance()
	}
	if c.T != 5 {
		t.Fatalf("unexpected t at half rate: %d", c.T)
	}

	c = NewClock(8000, DeviceRate)
	for i := 0; i < DeviceRate; i++ {
		c.Advance()
	}
	if c.T < 7999 || c.T > 8000 {
		t.Fatalf("one second at 8000 Hz advanced t to %d", c.T)
	}
	c.Reset()
	if c.T != 0 {
		t.Fatalf("reset failed")
	}
}

func TestNearestRate(t *testing.T) {
	if NearestRate(11025) != 11025 {
		t.Fatalf("known rate not kept")
	}
	if NearestRate(12345) != 8000 {
		t.Fatalf("unknown rate must fall back to 8000")
	}
}

func TestFillAdvancesClock(t *testing.T) {
	vm := New(rpn.Classic)
	if err := vm.Compile("t"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	c := NewClock(DeviceRate, DeviceRate)
	buf := make([]uint8, 300)
	vm.Fill(buf, c)
	if c.T != 300 {
		t.Fatalf("unexpected clock position: %d", c.T)
	}
	if buf[0] != 0 || buf[1] != 1 || buf[299] != uint8(299&0xFF) {
		t.Fatalf("unexpected samples: %v", buf[:4])
	}
}

func TestFindTrigger(t *testing.T) {
	r := runner(t, "t&15", rpn.Classic)
	if got := FindTrigger(r, 0); got != 2 {
		t.Fatalf("unexpected trigger: %d", got)
	}
	if got := FindTrigger(r, 5); got != 18 {
		t.Fatalf("unexpected trigger: %d", got)
	}
	flat := runner(t, "128", rpn.Classic)
	if got := FindTrigger(flat, 77); got != 77 {
		t.Fatalf("flat signal must not trigger: %d", got)
	}
}

func TestWindowZoom(t *testing.T) {
	r := runner(t, "t", rpn.Classic)
	w := Window(r, 0, 1)
	if len(w) != ScopePoints || w[1] != 2 || w[10] != 20 {
		t.Fatalf("unexpected window: %v", w[:12])
	}
	w = Window(r, 0, 2)
	if w[1] != 4 {
		t.Fatalf("unexpected zoomed window: %v", w[:4])
	}
}

func TestVMScopeUsesSnapshot(t *testing.T) {
	vm := New(rpn.Complex)
	if err := vm.Compile("c=c+1,c"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	vm.Scope(0, 1)
	if got := vm.Eval(0); got != 1 {
		t.Fatalf("scope disturbed playback state: %d", got)
	}
}

func TestRing(t *testing.T) {
	var r Ring
	for i := 0; i < 300; i++ {
		r.Put(float32(i))
	}
	s := r.Snapshot()
	if len(s) != ScopePoints || s[0] != 44 || s[ScopePoints-1] != 299 {
		t.Fatalf("unexpected ring order: first=%v last=%v", s[0], s[len(s)-1])
	}
}
