package vad

// State enumerates the detector's operating modes. There is no terminal
// state; the machine cycles indefinitely while the capture session is active.
type State int

const (
	// StateListening is the initial/idle state: no candidate speech.
	StateListening State = iota

	// StateSpeechDetected is the provisional state entered when energy first
	// crosses the speech threshold; the candidate is not yet confirmed.
	StateSpeechDetected

	// StateSpeaking is confirmed active speech; blocks accumulate into the
	// current segment until silence or the duration cap ends it.
	StateSpeaking
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateSpeechDetected:
		return "speech-detected"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// EndReason records why a segment was finalized.
type EndReason int

const (
	// EndSilence means the trailing-silence window elapsed.
	EndSilence EndReason = iota

	// EndMaxDuration means the segment hit the hard duration cap and was
	// force-cut. This is expected control flow, not an error.
	EndMaxDuration
)

// String returns the human-readable name of the end reason.
func (r EndReason) String() string {
	switch r {
	case EndSilence:
		return "silence"
	case EndMaxDuration:
		return "max-duration"
	default:
		return "unknown"
	}
}
