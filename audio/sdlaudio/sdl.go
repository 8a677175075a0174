// Package sdlaudio is the SDL2 output backend. Blocks are queued rather than
// pulled by a callback so no cgo export is needed.
package sdlaudio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/dc0d/onexit"
	"github.com/veandco/go-sdl2/sdl"
)

// queueBlocks is how many blocks may wait in the SDL queue before Write
// blocks.
const queueBlocks = 3

type Backend struct {
	mu     sync.Mutex
	dev    sdl.AudioDeviceID
	open   bool
	bytes  []byte
	limit  uint32
	period time.Duration
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "sdl" }

func (b *Backend) Open(deviceRate, frames int) error {
	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("unable to initialise sdl: %w", err)
	}
	spec := &sdl.AudioSpec{
		Freq:     int32(deviceRate),
		Format:   sdl.AUDIO_S16LSB,
		Channels: 1,
		Samples:  uint16(frames),
	}
	dev, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		sdl.Quit()
		return fmt.Errorf("unable to open sdl audio: %w", err)
	}
	b.mu.Lock()
	b.dev = dev
	b.open = true
	b.bytes = make([]byte, frames*2)
	b.limit = uint32(frames * 2 * queueBlocks)
	b.period = time.Duration(frames) * time.Second / time.Duration(deviceRate) / 4
	b.mu.Unlock()
	sdl.PauseAudioDevice(dev, false)
	onexit.Register(func() { _ = b.Close() })
	return nil
}

func (b *Backend) Write(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return fmt.Errorf("sdl device closed")
	}
	for sdl.GetQueuedAudioSize(b.dev) > b.limit {
		time.Sleep(b.period)
	}
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b.bytes[i*2:], uint16(s))
	}
	return sdl.QueueAudio(b.dev, b.bytes[:len(samples)*2])
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.open = false
	sdl.CloseAudioDevice(b.dev)
	sdl.Quit()
	return nil
}
