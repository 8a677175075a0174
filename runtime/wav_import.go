package bbruntime

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosuda/bytebeat/rpn"
)

// ImportRate is the rate imported samples are converted to.
const ImportRate = 32000

// PCM is decoded audio as mono samples in [0,255].
type PCM struct {
	Rate    int
	Samples []uint8
}

var errNotWAV = errors.New("not a RIFF/WAVE file")

// ReadWAV decodes 8-bit or 16-bit integer PCM. Multi-channel input is mixed
// down to mono.
func ReadWAV(r io.Reader) (*PCM, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}
	var (
		format, channels, bits uint16
		rate                   uint32
		body                   []byte
		haveFmt                bool
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		start := off + 8
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		switch id {
		case "fmt ":
			if end-start < 16 {
				return nil, fmt.Errorf("short fmt chunk (%d bytes)", end-start)
			}
			format = binary.LittleEndian.Uint16(data[start:])
			channels = binary.LittleEndian.Uint16(data[start+2:])
			rate = binary.LittleEndian.Uint32(data[start+4:])
			bits = binary.LittleEndian.Uint16(data[start+14:])
			haveFmt = true
		case "data":
			body = data[start:end]
		}
		off = start + size + size%2
	}
	if !haveFmt || body == nil {
		return nil, errors.New("missing fmt or data chunk")
	}
	if format != 1 {
		return nil, fmt.Errorf("unsupported wav format %d (only PCM)", format)
	}
	if channels == 0 || rate == 0 {
		return nil, errors.New("invalid channel count or sample rate")
	}
	if bits != 8 && bits != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}

	width := int(bits/8) * int(channels)
	frames := len(body) / width
	out := make([]uint8, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < int(channels); c++ {
			p := i*width + c*int(bits/8)
			if bits == 8 {
				sum += int(body[p])
			} else {
				s := int16(binary.LittleEndian.Uint16(body[p:]))
				sum += int(s>>8) + 128
			}
		}
		out[i] = uint8(sum / int(channels))
	}
	return &PCM{Rate: int(rate), Samples: out}, nil
}

// Resample converts to rate with linear interpolation.
func (p *PCM) Resample(rate int) *PCM {
	if rate == p.Rate || len(p.Samples) == 0 {
		return &PCM{Rate: rate, Samples: append([]uint8(nil), p.Samples...)}
	}
	n := int(int64(len(p.Samples)) * int64(rate) / int64(p.Rate))
	out := make([]uint8, n)
	ratio := float64(p.Rate) / float64(rate)
	last := len(p.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = p.Samples[last]
			continue
		}
		frac := pos - float64(j)
		v := float64(p.Samples[j])*(1-frac) + float64(p.Samples[j+1])*frac
		out[i] = uint8(v + 0.5)
	}
	return &PCM{Rate: rate, Samples: out}
}

// Program renders the samples as a program that plays them back in a loop.
// The array is indexed in place: a variable would only keep the low byte of
// the array id.
func (p *PCM) Program() string {
	var b strings.Builder
	b.Grow(len(p.Samples)*4 + 32)
	b.WriteString("[")
	for i, s := range p.Samples {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(s)))
	}
	b.WriteString("][t%")
	b.WriteString(strconv.Itoa(max(len(p.Samples), 1)))
	b.WriteString("]")
	return b.String()
}

// ImportWAV converts a wav file into a preset playing it at ImportRate.
func ImportWAV(path string) (Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	pcm, err := ReadWAV(bytes.NewReader(raw))
	if err != nil {
		return Preset{}, fmt.Errorf("import %s: %w", path, err)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Preset{
		Title: title,
		Code:  pcm.Resample(ImportRate).Program(),
		Rate:  ImportRate,
		Mode:  rpn.Complex,
	}, nil
}
