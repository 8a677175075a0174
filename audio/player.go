// Package audio drives a sound device from a running bytebeat program.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	bbruntime "github.com/gosuda/bytebeat/runtime"
)

// DefaultFrames is the number of device samples rendered per block.
const DefaultFrames = 1024

// scopeEvery is the decimation of the output scope ring.
const scopeEvery = 8

// Source produces 8-bit samples. *bbruntime.VM satisfies it.
type Source interface {
	Fill(dst []uint8, c *bbruntime.Clock)
	Valid() bool
}

// Backend is a blocking mono signed 16-bit output. Write returns once the
// device accepted the block, which paces the render loop.
type Backend interface {
	Name() string
	Open(deviceRate, frames int) error
	Write(samples []int16) error
	Close() error
}

type Options struct {
	// Rate is the logical bytebeat rate.
	Rate       int
	DeviceRate int
	Volume     float64
	Frames     int
}

func (o Options) normalized() Options {
	if o.DeviceRate <= 0 {
		o.DeviceRate = bbruntime.DeviceRate
	}
	if o.Rate <= 0 {
		o.Rate = bbruntime.Rates[0]
	}
	if o.Frames <= 0 {
		o.Frames = DefaultFrames
	}
	if o.Volume <= 0 || o.Volume > 1 {
		o.Volume = 1
	}
	return o
}

// Player renders blocks from a Source on its own goroutine. Controls may be
// called from any goroutine while it runs.
type Player struct {
	src Source
	out Backend
	opt Options

	playing atomic.Bool
	volume  atomic.Uint64
	rate    atomic.Int32
	seek    atomic.Int64
	t       atomic.Uint32
	blocks  atomic.Uint64
	scope   bbruntime.Ring

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func NewPlayer(src Source, out Backend, opt Options) *Player {
	opt = opt.normalized()
	p := &Player{src: src, out: out, opt: opt}
	p.volume.Store(math.Float64bits(opt.Volume))
	p.rate.Store(int32(opt.Rate))
	p.seek.Store(-1)
	return p
}

// Start opens the backend and begins rendering. Playback starts paused.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("player already started")
	}
	if err := p.out.Open(p.opt.DeviceRate, p.opt.Frames); err != nil {
		return fmt.Errorf("open %s: %w", p.out.Name(), err)
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- p.run(ctx)
	}()
	return nil
}

// Stop ends the render loop and closes the backend.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	err := <-p.done
	p.cancel = nil
	if cerr := p.out.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *Player) run(ctx context.Context) error {
	clock := bbruntime.NewClock(p.opt.Rate, p.opt.DeviceRate)
	rate := p.opt.Rate
	raw := make([]uint8, p.opt.Frames)
	pcm := make([]int16, p.opt.Frames)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if r := int(p.rate.Load()); r != rate {
			clock.SetRate(r, p.opt.DeviceRate)
			rate = r
		}
		if at := p.seek.Swap(-1); at >= 0 {
			clock.Reset()
			clock.T = uint32(at)
		}
		p.render(raw, pcm, clock)
		p.t.Store(clock.T)
		if err := p.out.Write(pcm); err != nil {
			return fmt.Errorf("write %s: %w", p.out.Name(), err)
		}
		p.blocks.Add(1)
	}
}

// render fills pcm with one block. Time stands still while paused or while
// the source holds no valid program.
func (p *Player) render(raw []uint8, pcm []int16, c *bbruntime.Clock) {
	if !p.playing.Load() || !p.src.Valid() {
		clear(pcm)
		return
	}
	p.src.Fill(raw, c)
	vol := p.Volume()
	for i, v := range raw {
		pcm[i] = ToS16(v, vol)
		if i%scopeEvery == 0 {
			p.scope.Put(float32(v)/127.5 - 1)
		}
	}
}

// ToS16 centres an unsigned 8-bit sample around zero and scales it.
func ToS16(v uint8, volume float64) int16 {
	return int16((float64(v)/127.5 - 1) * math.MaxInt16 * volume)
}

func (p *Player) Play()  { p.playing.Store(true) }
func (p *Player) Pause() { p.playing.Store(false) }

// Toggle flips play/pause and reports the new state.
func (p *Player) Toggle() bool {
	for {
		cur := p.playing.Load()
		if p.playing.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

func (p *Player) Playing() bool { return p.playing.Load() }

func (p *Player) SetVolume(v float64) {
	p.volume.Store(math.Float64bits(math.Max(0, math.Min(1, v))))
}

func (p *Player) Volume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// SetRate changes the logical rate; unknown rates fall back to 8000.
func (p *Player) SetRate(rate int) {
	p.rate.Store(int32(bbruntime.NearestRate(rate)))
}

func (p *Player) Rate() int { return int(p.rate.Load()) }

// Seek moves t before the next block is rendered.
func (p *Player) Seek(t uint32) { p.seek.Store(int64(t)) }

// T is the position reached by the last rendered block.
func (p *Player) T() uint32 { return p.t.Load() }

func (p *Player) Blocks() uint64 { return p.blocks.Load() }

// Scope returns the recent levels in [-1,1] before volume, oldest first.
func (p *Player) Scope() []float32 { return p.scope.Snapshot() }

func (p *Player) Backend() string { return p.out.Name() }
