package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// bitsPerSample is fixed at 16 for the signed little-endian PCM that the
	// transcription backends expect.
	bitsPerSample = 16

	// wavHeaderSize is the length of the canonical RIFF/WAVE header produced
	// by [EncodeWAV].
	wavHeaderSize = 44
)

// EncodePCM16 converts float samples in [-1, 1] to 16-bit signed
// little-endian PCM. Samples are clamped before scaling. Negative values are
// scaled by 32768 and positive values by 32767 so that the full asymmetric
// 16-bit range is used without overflow.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DecodePCM16 converts 16-bit signed little-endian PCM back to float samples
// in [-1, 1], inverting the asymmetric scaling of [EncodePCM16]. A trailing
// odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}

// EncodeWAV converts float samples to 16-bit mono PCM and wraps them in a
// standard RIFF/WAV container so any downstream consumer can parse the
// stream without external metadata.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	pcm := EncodePCM16(samples)

	const channels = 1
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, wavHeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)           // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)      // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// DecodeWAV parses a 16-bit mono PCM WAV file and returns its samples as a
// [Block]. Only the canonical PCM layout produced by [EncodeWAV] (and by
// common recording tools) is supported; compressed or multi-channel files
// return an error.
func DecodeWAV(data []byte) (Block, error) {
	if len(data) < wavHeaderSize {
		return Block{}, errors.New("audio: wav data shorter than header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Block{}, errors.New("audio: not a RIFF/WAVE file")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	channels := binary.LittleEndian.Uint16(data[22:24])
	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	bits := binary.LittleEndian.Uint16(data[34:36])

	if format != 1 {
		return Block{}, fmt.Errorf("audio: unsupported wav format %d (want PCM)", format)
	}
	if channels != 1 {
		return Block{}, fmt.Errorf("audio: unsupported channel count %d (want mono)", channels)
	}
	if bits != bitsPerSample {
		return Block{}, fmt.Errorf("audio: unsupported bit depth %d (want 16)", bits)
	}

	// Scan sub-chunks for "data"; tools sometimes insert LIST/INFO chunks
	// between fmt and data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "data" {
			end := body + size
			if end > len(data) {
				end = len(data)
			}
			return Block{
				Samples:    DecodePCM16(data[body:end]),
				SampleRate: int(sampleRate),
			}, nil
		}
		off = body + size
		if size%2 == 1 {
			off++ // chunks are word-aligned
		}
	}
	return Block{}, errors.New("audio: wav file has no data chunk")
}
