package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotWAV         = errors.New("speech: not a RIFF/WAVE file")
	ErrUnsupportedWAV = errors.New("speech: unsupported WAV format")
)

// WAV is the PCM payload of a mono 16-bit WAV file.
type WAV struct {
	SampleRate int
	PCM        []byte
}

// DecodeWAV walks the RIFF chunks and returns the data chunk of a 16-bit mono
// PCM file.
func DecodeWAV(data []byte) (WAV, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return WAV{}, ErrNotWAV
	}
	var out WAV
	haveFmt := false
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + size
		if end > len(data) {
			end = len(data)
		}
		switch id {
		case "fmt ":
			if end-body < 16 {
				return WAV{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || channels != 1 || bits != 16 {
				return WAV{}, fmt.Errorf("%w: format=%d channels=%d bits=%d", ErrUnsupportedWAV, format, channels, bits)
			}
			out.SampleRate = int(rate)
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAV{}, fmt.Errorf("%w: data before fmt", ErrUnsupportedWAV)
			}
			out.PCM = data[body:end]
			return out, nil
		}
		// chunks are word aligned
		offset = end + size%2
	}
	return WAV{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
}
