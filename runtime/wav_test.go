package bbruntime

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gosuda/bytebeat/rpn"
)

func TestWriteWAV(t *testing.T) {
	r := runner(t, "t&255", rpn.Classic)
	var buf bytes.Buffer
	calls := 0
	n, err := WriteWAV(&buf, r, ExportOptions{Rate: DeviceRate, Seconds: 1, Progress: func(done, total int) {
		calls++
	}})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data := buf.Bytes()
	if n != int64(len(data)) || len(data) != 44+DeviceRate {
		t.Fatalf("unexpected size: n=%d len=%d", n, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:16]) != "WAVEfmt " || string(data[36:40]) != "data" {
		t.Fatalf("bad header: %q", data[:44])
	}
	if binary.LittleEndian.Uint32(data[24:]) != DeviceRate || binary.LittleEndian.Uint16(data[34:]) != 8 {
		t.Fatalf("bad format fields")
	}
	if binary.LittleEndian.Uint32(data[40:]) != DeviceRate {
		t.Fatalf("bad data size")
	}
	if data[44] != 0 || data[44+300] != 44 {
		t.Fatalf("unexpected samples: %d %d", data[44], data[44+300])
	}
	if calls == 0 {
		t.Fatalf("progress never reported")
	}
}

func buildWAV(rate, channels, bits int, samples []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(samples)))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(samples)))
	b.Write(samples)
	return b.Bytes()
}

func TestReadWAVStereo16(t *testing.T) {
	var body bytes.Buffer
	for _, v := range []int16{0, 0, 32767, 32767, -32768, -32768} {
		binary.Write(&body, binary.LittleEndian, v)
	}
	pcm, err := ReadWAV(bytes.NewReader(buildWAV(16000, 2, 16, body.Bytes())))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if pcm.Rate != 16000 || len(pcm.Samples) != 3 {
		t.Fatalf("unexpected pcm: %+v", pcm)
	}
	if pcm.Samples[0] != 128 || pcm.Samples[1] != 255 || pcm.Samples[2] != 0 {
		t.Fatalf("unexpected samples: %v", pcm.Samples)
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	if _, err := ReadWAV(strings.NewReader("not a wav file at all")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ReadWAV(bytes.NewReader(buildWAV(8000, 1, 24, []byte{1, 2, 3}))); err == nil {
		t.Fatalf("expected bit depth error")
	}
}

func TestResample(t *testing.T) {
	pcm := &PCM{Rate: 16000, Samples: []uint8{0, 100}}
	out := pcm.Resample(32000)
	want := []uint8{0, 50, 100, 100}
	if len(out.Samples) != len(want) {
		t.Fatalf("unexpected length: %d", len(out.Samples))
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Fatalf("unexpected samples: %v", out.Samples)
		}
	}
}

func TestImportWAVPlaysBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blip.wav")
	samples := []byte{10, 20, 30, 40}
	if err := os.WriteFile(path, buildWAV(ImportRate, 1, 8, samples), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	p, err := ImportWAV(path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if p.Code != "[10,20,30,40][t%4]" {
		t.Fatalf("unexpected code: %q", p.Code)
	}
	if p.Title != "blip" || p.Rate != ImportRate || p.Mode != rpn.Complex {
		t.Fatalf("unexpected preset: %+v", p)
	}
	prog, err := p.Compile()
	if err != nil {
		t.Fatalf("imported program does not compile: %v\n%s", err, p.Code)
	}
	r := NewRunner(prog)
	for tick := uint32(0); tick < 8; tick++ {
		if got := r.Eval(tick); got != samples[tick%4] {
			t.Fatalf("t=%d: got %d want %d", tick, got, samples[tick%4])
		}
	}
}

func TestExportWAVFile(t *testing.T) {
	prog := runner(t, "t", rpn.Classic).Program()
	path := filepath.Join(t.TempDir(), "out.wav")
	n, err := ExportWAV(path, prog, ExportOptions{Rate: 8000, Seconds: 1})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if fi.Size() != n {
		t.Fatalf("size mismatch: %d vs %d", fi.Size(), n)
	}
}
