// Package telemetry keeps process-wide pipeline counters.
package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Stage names tracked by the recorder.
const (
	StageTranscription = "transcription"
	StageGeneration    = "generation"
	StageCaption       = "caption"
	StageStorage       = "storage"
	StagePersistence   = "persistence"
)

var stageNames = []string{StageTranscription, StageGeneration, StageCaption, StageStorage, StagePersistence}

type stageCounters struct {
	started   atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	totalMs   atomic.Uint64
}

// Recorder tracks pipeline activity across all sessions.
type Recorder struct {
	log *slog.Logger

	sessionsCreated  atomic.Uint64
	activeSessions   atomic.Int64
	recordsPersisted atomic.Uint64
	orphanedUploads  atomic.Uint64
	stages           map[string]*stageCounters
}

// StageSnapshot holds the counters for one stage.
type StageSnapshot struct {
	Started       uint64 `json:"started"`
	Succeeded     uint64 `json:"succeeded"`
	Failed        uint64 `json:"failed"`
	AverageMillis uint64 `json:"average_ms"`
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	SessionsCreated  uint64                   `json:"sessions_created"`
	ActiveSessions   int64                    `json:"active_sessions"`
	RecordsPersisted uint64                   `json:"records_persisted"`
	OrphanedUploads  uint64                   `json:"orphaned_uploads"`
	Stages           map[string]StageSnapshot `json:"stages"`
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	stages := make(map[string]*stageCounters, len(stageNames))
	for _, name := range stageNames {
		stages[name] = &stageCounters{}
	}
	return &Recorder{
		log:    logger.With("component", "telemetry.Recorder"),
		stages: stages,
	}
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	out := Snapshot{
		SessionsCreated:  r.sessionsCreated.Load(),
		ActiveSessions:   r.activeSessions.Load(),
		RecordsPersisted: r.recordsPersisted.Load(),
		OrphanedUploads:  r.orphanedUploads.Load(),
		Stages:           make(map[string]StageSnapshot, len(r.stages)),
	}
	for name, c := range r.stages {
		s := StageSnapshot{
			Started:   c.started.Load(),
			Succeeded: c.succeeded.Load(),
			Failed:    c.failed.Load(),
		}
		if done := s.Succeeded + s.Failed; done > 0 {
			s.AverageMillis = c.totalMs.Load() / done
		}
		out.Stages[name] = s
	}
	return out
}

// SessionOpened counts a new pipeline session.
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessionsCreated.Add(1)
	r.activeSessions.Add(1)
}

// SessionClosed is called when a session is evicted or deleted.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.activeSessions.Add(-1)
}

// RecordPersisted counts a committed metadata record.
func (r *Recorder) RecordPersisted() {
	if r == nil {
		return
	}
	r.recordsPersisted.Add(1)
}

// RecordOrphan counts an uploaded object with no metadata record.
func (r *Recorder) RecordOrphan() {
	if r == nil {
		return
	}
	r.orphanedUploads.Add(1)
}

// StageMetrics times a single stage invocation.
type StageMetrics struct {
	recorder *Recorder
	counters *stageCounters
	log      *slog.Logger
	started  time.Time
	closed   atomic.Bool
}

// StartStage begins timing stage for the given session. Unknown stage
// names return nil, which is safe to Finish.
func (r *Recorder) StartStage(sessionID, stage string) *StageMetrics {
	if r == nil {
		return nil
	}
	c, ok := r.stages[stage]
	if !ok {
		return nil
	}
	c.started.Add(1)
	return &StageMetrics{
		recorder: r,
		counters: c,
		log:      r.log.With("session_id", sessionID, "stage", stage),
		started:  time.Now(),
	}
}

// Finish records the outcome. Only the first call counts.
func (s *StageMetrics) Finish(err error) {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	duration := time.Since(s.started)
	s.counters.totalMs.Add(uint64(duration.Milliseconds()))

	if err != nil {
		s.counters.failed.Add(1)
		s.log.Debug("stage failed", "duration_ms", duration.Milliseconds(), "error", err)
		return
	}
	s.counters.succeeded.Add(1)
	s.log.Debug("stage completed", "duration_ms", duration.Milliseconds())
}
