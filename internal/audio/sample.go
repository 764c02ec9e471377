// Package audio holds the PCM buffer captured from the microphone and the
// conversions the transcription stage needs (downmix, normalisation, WAV).
package audio

import (
	"errors"
	"fmt"
	"math"
)

// silenceThreshold is the peak amplitude under which a buffer counts as silent.
const silenceThreshold = 1e-4

var (
	// ErrEmptySample is returned for a nil sample or one without frames.
	ErrEmptySample = errors.New("audio sample is empty")
	// ErrInvalidSample is returned when the sample rate, channel count or data
	// length do not describe a well-formed interleaved buffer.
	ErrInvalidSample = errors.New("audio sample is malformed")
)

// Sample is an interleaved PCM buffer. Data values are normalised to [-1, 1];
// frame i of channel c lives at Data[i*Channels+c].
type Sample struct {
	SampleRate int
	Channels   int
	Data       []float32
}

// Validate checks the sample shape.
func (s *Sample) Validate() error {
	if s == nil || len(s.Data) == 0 {
		return ErrEmptySample
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidSample, s.SampleRate)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidSample, s.Channels)
	}
	if len(s.Data)%s.Channels != 0 {
		return fmt.Errorf("%w: %d values do not divide into %d channels", ErrInvalidSample, len(s.Data), s.Channels)
	}
	return nil
}

// Frames returns the number of frames in the buffer.
func (s *Sample) Frames() int {
	if s == nil || s.Channels <= 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// Peak returns the largest absolute amplitude across all channels.
func (s *Sample) Peak() float32 {
	var peak float32
	if s == nil {
		return peak
	}
	for _, v := range s.Data {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	return peak
}

// IsSilent reports whether every value is below the silence threshold.
func (s *Sample) IsSilent() bool {
	return s.Peak() < silenceThreshold
}

// Downmix averages the channels of every frame into a mono sample. A mono
// sample is returned as a copy.
func (s *Sample) Downmix() *Sample {
	frames := s.Frames()
	mono := &Sample{SampleRate: s.SampleRate, Channels: 1, Data: make([]float32, frames)}
	if s.Channels == 1 {
		copy(mono.Data, s.Data)
		return mono
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < s.Channels; c++ {
			sum += s.Data[i*s.Channels+c]
		}
		mono.Data[i] = sum / float32(s.Channels)
	}
	return mono
}

// Normalize scales the buffer so its peak amplitude is 1. Silent buffers are
// returned unchanged.
func (s *Sample) Normalize() *Sample {
	out := &Sample{SampleRate: s.SampleRate, Channels: s.Channels, Data: make([]float32, len(s.Data))}
	copy(out.Data, s.Data)
	peak := s.Peak()
	if peak < silenceThreshold {
		return out
	}
	for i := range out.Data {
		out.Data[i] /= peak
	}
	return out
}

// FromPCM16 builds a sample from interleaved signed 16-bit values.
func FromPCM16(data []int16, sampleRate, channels int) *Sample {
	s := &Sample{SampleRate: sampleRate, Channels: channels, Data: make([]float32, len(data))}
	for i, v := range data {
		s.Data[i] = float32(v) / 32768.0
	}
	return s
}

// PCM16 converts the buffer to signed 16-bit values, clamping out-of-range input.
func (s *Sample) PCM16() []int {
	out := make([]int, len(s.Data))
	for i, v := range s.Data {
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		out[i] = int(math.Round(float64(v) * 32767))
	}
	return out
}
