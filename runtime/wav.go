package bbruntime

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gosuda/bytebeat/rpn"
)

const (
	wavHeaderSize = 44
	// DefaultExportSeconds is the length of a quick export.
	DefaultExportSeconds = 30
)

type ExportOptions struct {
	// Rate is the logical bytebeat rate.
	Rate    int
	Seconds int
	// Progress, when set, is called every 5000 samples and at the end.
	Progress func(done, total int)
}

func (o ExportOptions) normalized() ExportOptions {
	if o.Rate <= 0 {
		o.Rate = Rates[0]
	}
	if o.Seconds <= 0 {
		o.Seconds = DefaultExportSeconds
	}
	return o
}

// WAVHeader builds the 44 byte header of a mono unsigned 8-bit PCM file.
func WAVHeader(sampleRate, samples int) []byte {
	h := make([]byte, wavHeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+samples))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:], 1) // mono
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(sampleRate)) // byte rate
	binary.LittleEndian.PutUint16(h[32:], 1)                  // block align
	binary.LittleEndian.PutUint16(h[34:], 8)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(samples))
	return h
}

// WriteWAV renders r from t=0 at the logical rate, resampled to DeviceRate,
// and writes a complete WAV stream to w. It returns the number of bytes
// written.
func WriteWAV(w io.Writer, r *Runner, opt ExportOptions) (int64, error) {
	opt = opt.normalized()
	total := opt.Seconds * DeviceRate
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(WAVHeader(DeviceRate, total)); err != nil {
		return 0, err
	}
	clock := NewClock(opt.Rate, DeviceRate)
	for i := 0; i < total; i++ {
		if err := bw.WriteByte(r.Eval(clock.T)); err != nil {
			return int64(wavHeaderSize + i), err
		}
		clock.Advance()
		if opt.Progress != nil && i%5000 == 0 {
			opt.Progress(i, total)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	if opt.Progress != nil {
		opt.Progress(total, total)
	}
	return int64(wavHeaderSize + total), nil
}

// ExportWAV renders prog into a new file at path with fresh variables.
func ExportWAV(path string, prog *rpn.Program, opt ExportOptions) (int64, error) {
	if prog == nil {
		return 0, errors.New("no compiled program")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := WriteWAV(f, NewRunner(prog), opt)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("export %s: %w", path, err)
	}
	return n, nil
}
