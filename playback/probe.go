package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

var (
	oggMagic    = []byte("OggS")
	vorbisIdent = []byte("\x01vorbis")
	opusIdent   = []byte("OpusHead")
)

// ErrNotAudio is returned by Probe for data which is not recognized as audio.
var ErrNotAudio = errors.New("not an audio stream")

// Probe returns duration in seconds of Ogg (Vorbis or Opus) or WAV audio.
func Probe(data []byte) (float64, error) {
	if !filetype.IsAudio(data) {
		return 0, fmt.Errorf("%w: %s", ErrNotAudio, Kind(data))
	}
	switch {
	case filetype.IsType(data, matchers.TypeOgg):
		return probeOgg(data)
	case filetype.IsType(data, matchers.TypeWav):
		return probeWav(data)
	default:
		return 0, fmt.Errorf("unsupported audio type %s", Kind(data))
	}
}

// probeOgg divides granule position of the last page by stream sample rate.
func probeOgg(data []byte) (float64, error) {
	var (
		rate    float64
		preskip float64
	)
	switch {
	case bytes.Contains(data[:min(len(data), 512)], vorbisIdent):
		i := bytes.Index(data, vorbisIdent) + len(vorbisIdent)
		// version(4) channels(1) rate(4)
		if len(data) < i+9 {
			return 0, errors.New("truncated vorbis header")
		}
		rate = float64(binary.LittleEndian.Uint32(data[i+5 : i+9]))
	case bytes.Contains(data[:min(len(data), 512)], opusIdent):
		i := bytes.Index(data, opusIdent) + len(opusIdent)
		// version(1) channels(1) pre-skip(2)
		if len(data) < i+4 {
			return 0, errors.New("truncated opus header")
		}
		preskip = float64(binary.LittleEndian.Uint16(data[i+2 : i+4]))
		// opus granule always counts 48kHz samples
		rate = 48000
	default:
		return 0, errors.New("unknown ogg codec")
	}
	if rate == 0 {
		return 0, errors.New("zero sample rate")
	}

	last := bytes.LastIndex(data, oggMagic)
	// magic(4) version(1) type(1) granule(8)
	if last < 0 || len(data) < last+14 {
		return 0, errors.New("no ogg page with granule position")
	}
	granule := int64(binary.LittleEndian.Uint64(data[last+6 : last+14]))
	if granule < 0 {
		return 0, errors.New("last ogg page has no granule position")
	}
	return max(float64(granule)-preskip, 0) / rate, nil
}

// probeWav uses byte rate from fmt chunk and size of data chunk.
func probeWav(data []byte) (float64, error) {
	var byteRate, size uint32
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		n := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, errors.New("truncated wav fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			size = n
		}
		if byteRate > 0 && size > 0 {
			return float64(size) / float64(byteRate), nil
		}
		off = body + int(n) + int(n&1)
	}
	return 0, errors.New("wav without fmt or data chunk")
}
