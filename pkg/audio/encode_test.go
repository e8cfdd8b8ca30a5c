package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MrWong99/auricle/pkg/audio"
)

func TestEncodePCM16_ClampsOutOfRange(t *testing.T) {
	pcm := audio.EncodePCM16([]float32{2.0, -2.0})
	hi := int16(binary.LittleEndian.Uint16(pcm[0:2]))
	lo := int16(binary.LittleEndian.Uint16(pcm[2:4]))
	if hi != 32767 {
		t.Errorf("clamped positive sample = %d, want 32767", hi)
	}
	if lo != -32768 {
		t.Errorf("clamped negative sample = %d, want -32768", lo)
	}
}

func TestEncodePCM16_AsymmetricScaling(t *testing.T) {
	pcm := audio.EncodePCM16([]float32{1.0, -1.0, 0})
	if got := int16(binary.LittleEndian.Uint16(pcm[0:2])); got != 32767 {
		t.Errorf("+1.0 encoded as %d, want 32767", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[2:4])); got != -32768 {
		t.Errorf("-1.0 encoded as %d, want -32768", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[4:6])); got != 0 {
		t.Errorf("0 encoded as %d, want 0", got)
	}
}

func TestEncodeDecodePCM16_RoundTripWithinQuantizationError(t *testing.T) {
	in := make([]float32, 1024)
	for i := range in {
		in[i] = float32(0.9 * math.Sin(2*math.Pi*float64(i)/64))
	}
	out := audio.DecodePCM16(audio.EncodePCM16(in))
	if len(out) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(out), len(in))
	}
	const tol = 1.0 / 32767
	for i := range in {
		if diff := math.Abs(float64(in[i] - out[i])); diff > tol {
			t.Fatalf("sample %d: in=%v out=%v diff=%v exceeds 16-bit quantization error", i, in[i], out[i], diff)
		}
	}
}

func TestEncodeWAV_HeaderFields(t *testing.T) {
	wav := audio.EncodeWAV(make([]float32, 100), 16000)

	if len(wav) != 44+200 {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+200)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 200 {
		t.Errorf("data size = %d, want 200", got)
	}
}

func TestEncodeDecodeWAV_RoundTrip(t *testing.T) {
	in := make([]float32, 320)
	for i := range in {
		in[i] = float32(0.25 * math.Sin(2*math.Pi*float64(i)/32))
	}

	block, err := audio.DecodeWAV(audio.EncodeWAV(in, 16000))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if block.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", block.SampleRate)
	}
	if len(block.Samples) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(block.Samples), len(in))
	}
	const tol = 1.0 / 32767
	for i := range in {
		if diff := math.Abs(float64(in[i] - block.Samples[i])); diff > tol {
			t.Fatalf("sample %d differs beyond quantization error: %v vs %v", i, in[i], block.Samples[i])
		}
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"wrong magic", make([]byte, 64)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := audio.DecodeWAV(tc.data); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestBlock_Duration(t *testing.T) {
	b := audio.Block{Samples: make([]float32, 128), SampleRate: 16000}
	if got, want := b.Duration().Milliseconds(), int64(8); got != want {
		t.Fatalf("Duration = %dms, want %dms", got, want)
	}
	if (audio.Block{}).Duration() != 0 {
		t.Fatal("zero Block should have zero duration")
	}
}
