package pipeline

// State is a node of the session state machine.
type State string

const (
	StateIdle            State = "Idle"
	StateTranscribing    State = "Transcribing"
	StateTranscribed     State = "Transcribed"
	StateGeneratingImage State = "GeneratingImage"
	StateImageReady      State = "ImageReady"
	StateCaptioning      State = "Captioning"
	StateCaptioned       State = "Captioned"
	StatePersisting      State = "Persisting"
	StatePersisted       State = "Persisted"
	// StateFailed is absorbing; Snapshot.FailedStage names the active state
	// the session failed in.
	StateFailed State = "Failed"
)
