package audioio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadWAV is returned for containers that cannot be decoded.
var ErrBadWAV = errors.New("audioio: malformed WAV")

// DecodeWAV parses a RIFF/WAVE container and returns mono PCM16 samples
// and the sample rate. Stereo input is downmixed by averaging channels.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: not a RIFF/WAVE file", ErrBadWAV)
	}

	var (
		sampleRate int
		channels   int
		bitDepth   int
		pcm        []byte
		haveFmt    bool
	)

	// Walk the chunk list.
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrBadWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported WAV format %d", ErrBadWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, 0, fmt.Errorf("%w: missing fmt or data chunk", ErrBadWAV)
	}
	if bitDepth != 16 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrBadWAV, bitDepth)
	}
	if channels < 1 || channels > 2 {
		return nil, 0, fmt.Errorf("%w: unsupported channel count %d", ErrBadWAV, channels)
	}

	frames := len(pcm) / (2 * channels)
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		if channels == 1 {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		} else {
			l := int16(binary.LittleEndian.Uint16(pcm[i*4 : i*4+2]))
			r := int16(binary.LittleEndian.Uint16(pcm[i*4+2 : i*4+4]))
			samples[i] = int16((int32(l) + int32(r)) / 2)
		}
	}

	return samples, sampleRate, nil
}

// EncodeWAV builds a minimal mono PCM16 RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, 44+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(s))
	}

	return buf
}
