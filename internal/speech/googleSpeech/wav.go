package googleSpeech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/akolanti/CSDAssistant/internal/config"
)

var errUnsupportedWav = errors.New("only 16 bit PCM wav is supported")

type pcmAudio struct {
	Data       []byte
	SampleRate int32
	Channels   int32
}

// decodeAudio strips a RIFF/WAVE header. Anything without one is taken as
// raw LINEAR16 mono at the default rate.
func decodeAudio(audio []byte) (pcmAudio, error) {
	raw := pcmAudio{Data: audio, SampleRate: config.STTSampleRateHertz, Channels: 1}
	if len(audio) < 12 || !bytes.Equal(audio[0:4], []byte("RIFF")) || !bytes.Equal(audio[8:12], []byte("WAVE")) {
		return raw, nil
	}

	out := pcmAudio{SampleRate: config.STTSampleRateHertz, Channels: 1}
	sawFormat := false
	pos := 12
	for pos+8 <= len(audio) {
		id := string(audio[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(audio[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		// streaming encoders leave the data size at 0 or past the end
		if id == "data" && (size == 0 || end > len(audio)) {
			end = len(audio)
		}
		if end > len(audio) {
			return pcmAudio{}, fmt.Errorf("truncated wav chunk %q", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return pcmAudio{}, fmt.Errorf("short wav fmt chunk: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(audio[body : body+2])
			channels := binary.LittleEndian.Uint16(audio[body+2 : body+4])
			rate := binary.LittleEndian.Uint32(audio[body+4 : body+8])
			bits := binary.LittleEndian.Uint16(audio[body+14 : body+16])
			if format != 1 || bits != 16 {
				return pcmAudio{}, errUnsupportedWav
			}
			out.Channels = int32(channels)
			out.SampleRate = int32(rate)
			sawFormat = true
		case "data":
			if !sawFormat {
				return pcmAudio{}, errors.New("wav data before fmt chunk")
			}
			out.Data = audio[body:end]
			return out, nil
		}
		// chunks are word aligned
		pos = end + size%2
	}
	return pcmAudio{}, errors.New("wav without data chunk")
}
