package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
)

// ErrNotWAV is returned by DecodeWAV when the input is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("input is not a valid WAV file")

// EncodeWAV writes the sample as 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, s *Sample) error {
	if err := s.Validate(); err != nil {
		return err
	}
	enc := wav.NewEncoder(w, s.SampleRate, wavBitDepth, s.Channels, wavPCMFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: s.Channels, SampleRate: s.SampleRate},
		Data:           s.PCM16(),
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV frames: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise WAV header: %w", err)
	}
	return nil
}

// WriteTempWAV encodes the sample into a new temporary file and returns its
// path. The caller owns the file and must remove it.
func WriteTempWAV(s *Sample) (string, error) {
	f, err := os.CreateTemp("", "pipeline-audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for audio: %w", err)
	}
	path := f.Name()

	encErr := EncodeWAV(f, s)
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if encErr != nil {
			return "", encErr
		}
		return "", fmt.Errorf("failed to close temp audio file: %w", closeErr)
	}
	return path, nil
}

// DecodeWAV reads a PCM WAV stream into a Sample normalised to [-1, 1].
func DecodeWAV(r io.ReadSeeker) (*Sample, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV frames: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, ErrEmptySample
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidSample, depth)
	}
	scale := float32(int64(1) << (depth - 1))

	s := &Sample{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Data:       make([]float32, len(buf.Data)),
	}
	for i, v := range buf.Data {
		s.Data[i] = float32(v) / scale
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
