package tts

import (
	"fmt"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

// decodeWAV decodes provider output, mapping container faults onto the
// provider error taxonomy.
func decodeWAV(data []byte) ([]int16, int, error) {
	samples, rate, err := audioio.DecodeWAV(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadAudio, err)
	}
	return samples, rate, nil
}

func encodeWAV(samples []int16, sampleRate int) []byte {
	return audioio.EncodeWAV(samples, sampleRate)
}
