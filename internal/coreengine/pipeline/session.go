// Package pipeline sequences the voice-to-image stages: transcribe,
// generate an image, caption it, store the image and record its metadata.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/audio"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/metricscalculator"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/telemetry"
)

// ErrInvalidTransition is returned when a trigger cannot apply to the
// current state. The session is left unchanged.
var ErrInvalidTransition = errors.New("trigger not allowed in the current state")

// MetadataRepository persists one record per stored artifact.
type MetadataRepository interface {
	InsertArtifactRecord(ctx context.Context, prompt, filename, description string) (int64, error)
}

// Adapters is the set of stage implementations a session drives. It is
// safe to share between sessions.
type Adapters struct {
	Transcription *TranscriptionAdapter
	Generation    *GenerationAdapter
	Caption       *CaptionAdapter
	Store         *ArtifactStoreAdapter
	Repository    MetadataRepository
}

// Options control chaining and per-stage timeouts. A zero timeout means
// the stage is bounded only by the caller's context.
type Options struct {
	AutoCaption bool
	AutoPersist bool

	TranscriptionTimeout time.Duration
	GenerationTimeout    time.Duration
	CaptionTimeout       time.Duration
	StorageTimeout       time.Duration
	PersistenceTimeout   time.Duration
}

// OptionsFromConfig maps the pipeline section of the configuration.
func OptionsFromConfig(cfg configmanagement.PipelineConfig) Options {
	return Options{
		AutoCaption:          cfg.AutoCaption,
		AutoPersist:          cfg.AutoPersist,
		TranscriptionTimeout: configmanagement.Timeout(cfg.TranscriptionTimeoutSeconds),
		GenerationTimeout:    configmanagement.Timeout(cfg.GenerationTimeoutSeconds),
		CaptionTimeout:       configmanagement.Timeout(cfg.CaptionTimeoutSeconds),
		StorageTimeout:       configmanagement.Timeout(cfg.StorageTimeoutSeconds),
		PersistenceTimeout:   configmanagement.Timeout(cfg.PersistenceTimeoutSeconds),
	}
}

// Snapshot is a copy of the session's observable state.
type Snapshot struct {
	ID          string         `json:"session_id"`
	State       State          `json:"state"`
	FailedStage State          `json:"failed_stage,omitempty"`
	ErrorKind   Kind           `json:"error_kind,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
	ImageRef    ImageReference `json:"image_ref,omitempty"`
	Caption     string         `json:"caption,omitempty"`
	Filename    string         `json:"image_filename,omitempty"`
	RecordID    int64          `json:"record_id,omitempty"`
	PromptDrift *float64       `json:"prompt_drift,omitempty"`
}

// Session is one pipeline instance. Triggers are serialised; Snapshot can
// be read while a stage is running.
type Session struct {
	id        string
	adapters  Adapters
	opts      Options
	log       *slog.Logger
	telemetry *telemetry.Recorder

	run        sync.Mutex
	inflight   atomic.Int32
	lastActive atomic.Int64

	mu          sync.RWMutex
	state       State
	failure     *Error
	transcript  string
	imageRef    ImageReference
	caption     CaptionResult
	recordID    int64
	promptDrift *float64
}

// NewSession returns a session in the Idle state. recorder may be nil.
func NewSession(id string, adapters Adapters, opts Options, logger *slog.Logger, recorder *telemetry.Recorder) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:        id,
		adapters:  adapters,
		opts:      opts,
		log:       logger.With("component", "pipeline.session", "session_id", id),
		telemetry: recorder,
		state:     StateIdle,
	}
	s.touch()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastActive returns the time the most recent trigger started or finished.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Busy reports whether a trigger is running or waiting to run.
func (s *Session) Busy() bool {
	return s.inflight.Load() > 0
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// begin serializes triggers. The returned func must be deferred.
func (s *Session) begin() func() {
	s.inflight.Add(1)
	s.run.Lock()
	s.touch()
	return func() {
		s.touch()
		s.run.Unlock()
		s.inflight.Add(-1)
	}
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		Transcript: s.transcript,
		ImageRef:   s.imageRef,
		Caption:    s.caption.Text,
		Filename:   s.caption.Filename,
		RecordID:   s.recordID,
	}
	if s.promptDrift != nil {
		d := *s.promptDrift
		snap.PromptDrift = &d
	}
	if s.failure != nil {
		snap.FailedStage = s.failure.Stage
		snap.ErrorKind = s.failure.Kind
		snap.Warning = s.failure.Error()
	}
	return snap
}

// OnAudioCaptured starts a new run from Idle, discarding everything the
// session held, including a previous failure.
func (s *Session) OnAudioCaptured(ctx context.Context, sample *audio.Sample) (Snapshot, error) {
	defer s.begin()()

	s.mu.Lock()
	s.reset()
	s.state = StateTranscribing
	s.mu.Unlock()

	stage := s.startStage(telemetry.StageTranscription)
	stageCtx, cancel := withTimeout(ctx, s.opts.TranscriptionTimeout)
	text, err := s.adapters.Transcription.Transcribe(stageCtx, sample)
	cancel()
	stage.Finish(err)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.transcript = text
	s.state = StateTranscribed
	s.mu.Unlock()
	s.log.Info("audio transcribed", "chars", len(text))
	return s.Snapshot(), nil
}

// OnGenerateImageRequested generates an image from the transcript. It may
// be repeated from Transcribed, ImageReady or Captioned; downstream values
// are cleared first.
func (s *Session) OnGenerateImageRequested(ctx context.Context) (Snapshot, error) {
	defer s.begin()()

	if err := s.checkTrigger(StateIdle, StateTranscribed, StateImageReady, StateCaptioned); err != nil {
		return s.Snapshot(), err
	}
	if err := s.generateImage(ctx); err != nil {
		return s.Snapshot(), err
	}
	if s.opts.AutoCaption {
		return s.captionAndMaybePersist(ctx)
	}
	return s.Snapshot(), nil
}

// OnGenerateCaptionRequested captions the current image.
func (s *Session) OnGenerateCaptionRequested(ctx context.Context) (Snapshot, error) {
	defer s.begin()()

	if err := s.checkTrigger(StateIdle, StateTranscribed, StateImageReady, StateCaptioned); err != nil {
		return s.Snapshot(), err
	}
	return s.captionAndMaybePersist(ctx)
}

// OnSaveRequested stores the image and inserts its metadata record. A
// session that is already Persisted returns its record without storing
// anything again.
func (s *Session) OnSaveRequested(ctx context.Context) (Snapshot, error) {
	defer s.begin()()

	s.mu.RLock()
	persisted := s.state == StatePersisted
	s.mu.RUnlock()
	if persisted {
		return s.Snapshot(), nil
	}

	if err := s.checkTrigger(StateIdle, StateTranscribed, StateImageReady, StateCaptioned); err != nil {
		return s.Snapshot(), err
	}
	if err := s.persist(ctx); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// checkTrigger re-reports a recorded failure and rejects triggers from
// states outside allowed.
func (s *Session) checkTrigger(allowed ...State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateFailed && s.failure != nil {
		return s.failure
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return ErrInvalidTransition
}

func (s *Session) generateImage(ctx context.Context) error {
	s.mu.Lock()
	s.imageRef = ""
	s.caption = CaptionResult{}
	s.promptDrift = nil
	s.state = StateGeneratingImage
	prompt := s.transcript
	s.mu.Unlock()

	stage := s.startStage(telemetry.StageGeneration)
	stageCtx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	ref, err := s.adapters.Generation.Generate(stageCtx, prompt)
	cancel()
	stage.Finish(err)
	if err != nil {
		_, err = s.fail(err)
		return err
	}

	s.mu.Lock()
	s.imageRef = ref
	s.state = StateImageReady
	s.mu.Unlock()
	s.log.Info("image generated", "remote", ref.IsRemote())
	return nil
}

func (s *Session) captionAndMaybePersist(ctx context.Context) (Snapshot, error) {
	if err := s.generateCaption(ctx); err != nil {
		return s.Snapshot(), err
	}
	if s.opts.AutoPersist {
		if err := s.persist(ctx); err != nil {
			return s.Snapshot(), err
		}
	}
	return s.Snapshot(), nil
}

func (s *Session) generateCaption(ctx context.Context) error {
	s.mu.Lock()
	s.caption = CaptionResult{}
	s.promptDrift = nil
	s.state = StateCaptioning
	ref, prompt := s.imageRef, s.transcript
	s.mu.Unlock()

	stage := s.startStage(telemetry.StageCaption)
	stageCtx, cancel := withTimeout(ctx, s.opts.CaptionTimeout)
	result, err := s.adapters.Caption.Caption(stageCtx, ref, prompt)
	cancel()
	stage.Finish(err)
	if err != nil {
		_, err = s.fail(err)
		return err
	}

	drift := metricscalculator.PromptDrift(prompt, result.Text)
	s.mu.Lock()
	s.caption = result
	s.promptDrift = &drift
	s.state = StateCaptioned
	s.mu.Unlock()
	s.log.Info("image captioned", "filename", result.Filename, "prompt_drift", drift)
	return nil
}

func (s *Session) persist(ctx context.Context) error {
	s.mu.Lock()
	ref, prompt, caption := s.imageRef, s.transcript, s.caption
	s.state = StatePersisting
	s.mu.Unlock()

	if ref == "" || prompt == "" || caption.Text == "" || caption.Filename == "" {
		_, err := s.fail(inputMissing(StatePersisting, "generate an image and its caption before saving"))
		return err
	}
	if s.adapters.Store == nil {
		_, err := s.fail(failed(KindStorageFailed, StatePersisting, errors.New("no artifact store configured")))
		return err
	}
	if s.adapters.Repository == nil {
		_, err := s.fail(failed(KindPersistenceFailed, StatePersisting, errors.New("no metadata repository configured")))
		return err
	}

	stage := s.startStage(telemetry.StageStorage)
	storeCtx, cancel := withTimeout(ctx, s.opts.StorageTimeout)
	upload, err := s.adapters.Store.Upload(storeCtx, ref, caption.Filename)
	cancel()
	stage.Finish(err)
	if err != nil {
		_, err = s.fail(err)
		return err
	}

	stage = s.startStage(telemetry.StagePersistence)
	insertCtx, cancel := withTimeout(ctx, s.opts.PersistenceTimeout)
	id, err := s.adapters.Repository.InsertArtifactRecord(insertCtx, prompt, caption.Filename, caption.Text)
	cancel()
	stage.Finish(err)
	if err != nil {
		s.log.Warn("stored object has no metadata record", "key", upload.Key, "error", err)
		s.telemetry.RecordOrphan()
		_, err = s.fail(failed(KindPersistenceFailed, StatePersisting, err))
		return err
	}

	s.telemetry.RecordPersisted()
	s.mu.Lock()
	s.recordID = id
	s.state = StatePersisted
	s.mu.Unlock()
	s.log.Info("artifact persisted", "record_id", id, "key", upload.Key)
	return nil
}

// fail moves the session to Failed. Errors that are not *Error are
// attributed to the state the session was in.
func (s *Session) fail(err error) (Snapshot, error) {
	s.mu.Lock()
	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Kind: kindForState(s.state), Stage: s.state, Err: err}
	}
	s.failure = pe
	s.state = StateFailed
	s.mu.Unlock()

	if pe.Kind == KindInputMissing {
		s.log.Info("stage skipped", "stage", pe.Stage, "reason", pe.Err)
	} else {
		s.log.Warn("stage failed", "stage", pe.Stage, "kind", pe.Kind, "error", pe.Err)
	}
	return s.Snapshot(), pe
}

func (s *Session) reset() {
	s.state = StateIdle
	s.failure = nil
	s.transcript = ""
	s.imageRef = ""
	s.caption = CaptionResult{}
	s.recordID = 0
	s.promptDrift = nil
}

func (s *Session) startStage(name string) *telemetry.StageMetrics {
	return s.telemetry.StartStage(s.id, name)
}

func kindForState(state State) Kind {
	switch state {
	case StateTranscribing:
		return KindTranscriptionFailed
	case StateGeneratingImage:
		return KindGenerationFailed
	case StateCaptioning:
		return KindCaptionFailed
	default:
		return KindPersistenceFailed
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
