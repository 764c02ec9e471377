package vendoradapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
)

// Set is the adapter wiring selected by configuration. Close releases any
// clients that hold connections.
type Set struct {
	Transcriber    Transcriber
	ImageGenerator ImageGenerator
	Captioner      Captioner
	closers        []io.Closer
}

// Close releases every client in the set.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSet builds the adapters named in cfg.Vendors. Clients shared by more
// than one capability are constructed once.
func NewSet(ctx context.Context, cfg *configmanagement.Config, logger *slog.Logger) (*Set, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &registry{cfg: cfg, log: logger}
	set := &Set{}

	var err error
	if set.Transcriber, err = r.transcriber(ctx, cfg.Vendors.Transcription); err != nil {
		set.closers = r.closers
		set.Close()
		return nil, err
	}
	if set.ImageGenerator, err = r.imageGenerator(cfg.Vendors.ImageGeneration); err != nil {
		set.closers = r.closers
		set.Close()
		return nil, err
	}
	if set.Captioner, err = r.captioner(cfg.Vendors.Caption); err != nil {
		set.closers = r.closers
		set.Close()
		return nil, err
	}
	set.closers = r.closers

	logger.Info("vendor adapters selected",
		"transcription", set.Transcriber.Name(),
		"image_generation", set.ImageGenerator.Name(),
		"caption", set.Captioner.Name(),
	)
	return set, nil
}

type registry struct {
	cfg       *configmanagement.Config
	log       *slog.Logger
	openai    *OpenAIAdapter
	replicate *ReplicateAdapter
	stub      *StubEngine
	closers   []io.Closer
}

func (r *registry) openaiAdapter() *OpenAIAdapter {
	if r.openai == nil {
		r.openai = NewOpenAIAdapter(r.cfg.OpenAI, r.log)
	}
	return r.openai
}

func (r *registry) replicateAdapter() (*ReplicateAdapter, error) {
	if r.replicate == nil {
		a, err := NewReplicateAdapter(r.cfg.Replicate, r.log)
		if err != nil {
			return nil, err
		}
		r.replicate = a
	}
	return r.replicate, nil
}

func (r *registry) stubEngine() *StubEngine {
	if r.stub == nil {
		r.stub = NewStubEngine(r.log)
	}
	return r.stub
}

func (r *registry) transcriber(ctx context.Context, vendor string) (Transcriber, error) {
	switch vendor {
	case configmanagement.VendorOpenAI:
		return r.openaiAdapter(), nil
	case configmanagement.VendorGoogle:
		g, err := NewGoogleTranscriber(ctx, r.cfg.Google, r.log)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, g)
		return g, nil
	case configmanagement.VendorTencent:
		return NewTencentTranscriber(r.cfg.Tencent, r.log)
	case configmanagement.VendorDeepgram:
		return NewDeepgramTranscriber(r.cfg.Deepgram, r.cfg.Google.LanguageCode, r.log), nil
	case configmanagement.VendorStub:
		return r.stubEngine(), nil
	default:
		return nil, fmt.Errorf("no transcription adapter available for vendor %q", vendor)
	}
}

func (r *registry) imageGenerator(vendor string) (ImageGenerator, error) {
	switch vendor {
	case configmanagement.VendorReplicate:
		return r.replicateAdapter()
	case configmanagement.VendorOpenAI:
		return r.openaiAdapter(), nil
	case configmanagement.VendorStub:
		return r.stubEngine(), nil
	default:
		return nil, fmt.Errorf("no image generation adapter available for vendor %q", vendor)
	}
}

func (r *registry) captioner(vendor string) (Captioner, error) {
	switch vendor {
	case configmanagement.VendorReplicate:
		return r.replicateAdapter()
	case configmanagement.VendorOpenAI:
		return r.openaiAdapter(), nil
	case configmanagement.VendorStub:
		return r.stubEngine(), nil
	default:
		return nil, fmt.Errorf("no caption adapter available for vendor %q", vendor)
	}
}
