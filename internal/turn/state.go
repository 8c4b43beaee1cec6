package turn

// State is the single explicit phase of the controller's exchange cycle.
// It exists only for the duration of one exchange and always returns to
// StateUserTurn, on success and on failure alike.
type State int

const (
	// StateUserTurn means the controller is idle, waiting for the user to
	// begin speaking. The speak control is enabled only in this state.
	StateUserTurn State = iota
	// StateCapturing means a recording is open.
	StateCapturing
	// StateEncoding means the captured clip is being converted into its
	// transport representation.
	StateEncoding
	// StateAwaitingTranscription means one STT call is outstanding.
	StateAwaitingTranscription
	// StateAwaitingAnswer means one knowledge-query call is outstanding.
	StateAwaitingAnswer
	// StateAwaitingSynthesis means one TTS call is outstanding.
	StateAwaitingSynthesis
	// StateSpeaking means the synthesized answer is playing.
	StateSpeaking
)

// String returns the UI-facing status label for the state.
func (s State) String() string {
	switch s {
	case StateUserTurn:
		return "user_turn"
	case StateCapturing:
		return "capturing"
	case StateEncoding:
		return "encoding"
	case StateAwaitingTranscription:
		return "transcribing"
	case StateAwaitingAnswer:
		return "consulting"
	case StateAwaitingSynthesis:
		return "synthesizing"
	case StateSpeaking:
		return "speaking"
	}
	return "unknown"
}
