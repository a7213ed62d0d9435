package llm

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

// ContextKind is the kind of source material a result was produced from.
type ContextKind int

const (
	NoContext ContextKind = iota
	ImageContext
	AudioContext
)

func (k ContextKind) String() string {
	switch k {
	case ImageContext:
		return "image"
	case AudioContext:
		return "audio"
	default:
		return "none"
	}
}

// Context is the original capture that a refinement may resend to the model.
type Context struct {
	Kind ContextKind
	Data []byte
}

// Image wraps PNG bytes.
func Image(png []byte) Context { return Context{Kind: ImageContext, Data: png} }

// Audio wraps WAV bytes.
func Audio(wavData []byte) Context { return Context{Kind: AudioContext, Data: wavData} }

// ErrInvalidAudio is returned for audio context that is not a readable WAV stream.
var ErrInvalidAudio = errors.New("invalid wav audio")

// AudioInfo describes a validated WAV clip.
type AudioInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ValidateWAV checks that data decodes as WAV before it is uploaded.
func ValidateWAV(data []byte) (AudioInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return AudioInfo{}, ErrInvalidAudio
	}
	dur, err := dec.Duration()
	if err != nil {
		return AudioInfo{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	return AudioInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}
