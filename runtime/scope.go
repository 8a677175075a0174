package bbruntime

import "sync"

const (
	triggerSearch = 1024
	triggerLevel  = 2
	// ScopePoints is the number of points in a scope window and ring.
	ScopePoints = 256
	scopeSpan   = 512
)

// ZoomFactors are the horizontal zoom steps of the oscilloscope.
var ZoomFactors = []int{1, 2, 4, 8}

// FindTrigger looks up to 1024 ticks ahead of t for a rising edge through
// a low level so the scope picture stands still. It returns t when no edge
// is found.
func FindTrigger(r *Runner, t uint32) uint32 {
	now := r.Eval(t)
	for i := uint32(0); i < triggerSearch; i++ {
		next := r.Eval(t + i + 1)
		if now <= triggerLevel && next > triggerLevel {
			return t + i
		}
		now = next
	}
	return t
}

// Window samples ScopePoints values spread over 512*zoom ticks from t.
func Window(r *Runner, t uint32, zoom int) []uint8 {
	if zoom < 1 {
		zoom = 1
	}
	span := float64(scopeSpan * zoom)
	out := make([]uint8, ScopePoints)
	for n := range out {
		off := uint32(float64(n) / ScopePoints * span)
		out[n] = r.Eval(t + off)
	}
	return out
}

// Scope returns a triggered scope window for the VM without touching the
// playback variables.
func (vm *VM) Scope(t uint32, zoom int) []uint8 {
	r := vm.Snapshot()
	if r == nil {
		return make([]uint8, ScopePoints)
	}
	return Window(r, FindTrigger(r, t), zoom)
}

// Ring records recent output levels from the audio goroutine for display.
type Ring struct {
	mu  sync.Mutex
	buf [ScopePoints]float32
	idx int
}

func (r *Ring) Put(v float32) {
	r.mu.Lock()
	r.buf[r.idx] = v
	r.idx = (r.idx + 1) % ScopePoints
	r.mu.Unlock()
}

// Snapshot returns the ring contents oldest first.
func (r *Ring) Snapshot() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float32, 0, ScopePoints)
	out = append(out, r.buf[r.idx:]...)
	out = append(out, r.buf[:r.idx]...)
	return out
}
