package audio

import (
	"sync"
	"time"
)

// Null discards samples. When Realtime is set Write sleeps for the length
// of each block so the render loop keeps device pace without a device.
type Null struct {
	Realtime bool

	mu     sync.Mutex
	period time.Duration
	next   time.Time
}

func (n *Null) Name() string { return "null" }

func (n *Null) Open(deviceRate, frames int) error {
	n.mu.Lock()
	n.period = time.Duration(frames) * time.Second / time.Duration(deviceRate)
	n.next = time.Now()
	n.mu.Unlock()
	return nil
}

func (n *Null) Write(samples []int16) error {
	if !n.Realtime {
		return nil
	}
	n.mu.Lock()
	n.next = n.next.Add(n.period)
	wait := time.Until(n.next)
	n.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

func (n *Null) Close() error { return nil }
