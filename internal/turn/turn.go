// Package turn implements the voice turn controller: the small state
// machine that drives exactly one conversational exchange to completion
// (capture, encode, transcribe, query, synthesize, speak) with at most
// one exchange in flight per session.
//
// The controller owns its session's in-memory transcript. Collaborators
// (capture device, remote clients, player, persistence) are injected as
// narrow interfaces so the whole cycle is testable with fakes.
package turn

import (
	"context"
	"errors"
	"time"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
)

// ErrBusy is returned when a gesture arrives while an exchange is already
// in flight. The UI contract is strictly turn-by-turn; nothing is queued.
var ErrBusy = errors.New("turn: an exchange is already in flight")

// ErrNotCapturing is returned when EndCapture arrives without a matching
// BeginCapture.
var ErrNotCapturing = errors.New("turn: no recording is open")

// DefaultDebounce is the gesture duration below which a capture is treated
// as a mis-tap and discarded without calling any remote service.
const DefaultDebounce = 500 * time.Millisecond

// Clip is a finished recording held by the capture adapter.
type Clip interface {
	// EncodeBase64 converts the recording artifact into its transport
	// representation. It fails only when the artifact is unavailable,
	// which aborts the turn.
	EncodeBase64() (string, error)
	// Discard releases the recording artifact without using it.
	Discard()
}

// Capture wraps the platform microphone.
type Capture interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (Clip, error)
}

// Transcriber converts an encoded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64 string) (string, error)
}

// Answerer resolves a transcribed query into answer text.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Synthesizer converts answer text into an encoded clip, selecting the
// voice by module kind.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, kind module.Kind) (string, error)
}

// Player owns the single audio output channel. Play blocks until natural
// playback completion; Stop releases whatever sound is currently held so
// the next playback starts from silence.
type Player interface {
	Play(ctx context.Context, audioBase64 string) error
	Stop()
}

// Saver persists the session after an exchange mutates it. Failures are
// logged by the controller but never fail the turn.
type Saver interface {
	Save(ctx context.Context, session chat.Session) error
}

// Notifier surfaces user-facing diagnostics. Alert reports a turn-aborting
// failure; Warn reports the softer synthesis-only downgrade.
type Notifier interface {
	Alert(msg string)
	Warn(msg string)
}

// Deps bundles the controller's collaborators. Transcriber, Answerer,
// Synthesizer and Notifier are required. Capture is optional when turns
// are submitted pre-encoded (the gateway path); Player is optional when
// playback happens on the caller's side; Saver is optional for ephemeral
// sessions.
type Deps struct {
	Capture     Capture
	Transcriber Transcriber
	Answerer    Answerer
	Synthesizer Synthesizer
	Player      Player
	Saver       Saver
	Notifier    Notifier
}

// Exchange is the outcome of one completed (or partially completed)
// exchange.
type Exchange struct {
	UserMessage      chat.Message
	AssistantMessage chat.Message
	// AudioBase64 is the synthesized answer clip; empty when synthesis
	// was skipped or failed.
	AudioBase64 string
	// Spoke reports whether playback ran to completion.
	Spoke bool
}
