// Package paaudio is the PortAudio output backend.
package paaudio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dc0d/onexit"
	pa "github.com/gordonklaus/portaudio"
)

type Backend struct {
	mu     sync.Mutex
	stream *pa.Stream
	buf    []int16
	info   string
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "portaudio" }

// Info describes the opened device.
func (b *Backend) Info() string { return b.info }

func (b *Backend) Open(deviceRate, frames int) error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("unable to setup portaudio: %w", err)
	}
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return fmt.Errorf("default output: %w", err)
	}
	b.buf = make([]int16, frames)
	stream, err := pa.OpenDefaultStream(0, 1, float64(deviceRate), frames, &b.buf)
	if err != nil {
		pa.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}
	b.mu.Lock()
	b.stream = stream
	b.mu.Unlock()
	b.info = fmt.Sprintf("%s, %s @ %.f Hz", strings.Split(pa.VersionText(), ",")[0], d.Name, stream.Info().SampleRate)
	// release the device when the process is interrupted
	onexit.Register(func() { _ = b.Close() })
	return nil
}

func (b *Backend) Write(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return fmt.Errorf("portaudio stream closed")
	}
	copy(b.buf, samples)
	return b.stream.Write()
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream == nil {
		return nil
	}
	b.stream.Stop()
	err := b.stream.Close()
	b.stream = nil
	if terr := pa.Terminate(); err == nil {
		err = terr
	}
	return err
}
