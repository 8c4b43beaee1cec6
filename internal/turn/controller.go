package turn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
)

// StageError reports which phase of the exchange failed.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("turn: %s failed: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Controller drives one session's exchanges. It is safe for concurrent
// use: gestures arriving while an exchange is in flight fail with ErrBusy
// instead of interleaving.
type Controller struct {
	deps     Deps
	debounce time.Duration
	now      func() time.Time
	onState  func(State)

	mu           sync.Mutex
	state        State
	session      *chat.Session
	captureStart time.Time
}

// Option configures a Controller during construction.
type Option func(*Controller)

// WithDebounce overrides the mis-tap threshold.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithStateFunc registers a callback invoked on every state transition,
// used by UIs and streaming handlers to render progress.
func WithStateFunc(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithClock overrides the controller's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New constructs a controller around the given session. The session is
// owned by the controller for the controller's lifetime; callers read it
// back through Session.
func New(session *chat.Session, deps Deps, opts ...Option) (*Controller, error) {
	if session == nil {
		return nil, errors.New("turn: session must not be nil")
	}
	if deps.Answerer == nil {
		return nil, errors.New("turn: answerer must not be nil")
	}
	if deps.Synthesizer == nil {
		return nil, errors.New("turn: synthesizer must not be nil")
	}
	if deps.Notifier == nil {
		return nil, errors.New("turn: notifier must not be nil")
	}

	c := &Controller{
		deps:     deps,
		debounce: DefaultDebounce,
		now:      time.Now,
		state:    StateUserTurn,
		session:  session,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// State returns the current phase of the exchange cycle.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a snapshot of the controller's session.
func (c *Controller) Session() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := *c.session
	snapshot.Messages = make([]chat.Message, len(c.session.Messages))
	copy(snapshot.Messages, c.session.Messages)
	return snapshot
}

// BeginCapture opens a recording. It is the "begin speech" gesture and is
// only legal while the controller is idle.
func (c *Controller) BeginCapture(ctx context.Context) error {
	if c.deps.Capture == nil {
		return errors.New("turn: no capture device configured")
	}

	c.mu.Lock()
	if c.state != StateUserTurn {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateCapturing
	c.captureStart = c.now()
	c.mu.Unlock()
	c.emit(StateCapturing)

	if err := c.deps.Capture.Start(ctx); err != nil {
		c.setState(StateUserTurn)
		c.deps.Notifier.Alert("could not access the microphone")
		return &StageError{State: StateCapturing, Err: err}
	}
	return nil
}

// EndCapture closes the recording and, unless the gesture was a mis-tap,
// runs the full exchange to completion. A gesture shorter than the
// debounce threshold discards the recording and returns (nil, nil) without
// touching any remote service or the session.
func (c *Controller) EndCapture(ctx context.Context) (*Exchange, error) {
	c.mu.Lock()
	if c.state != StateCapturing {
		c.mu.Unlock()
		return nil, ErrNotCapturing
	}
	held := c.now().Sub(c.captureStart)
	c.mu.Unlock()

	clip, err := c.deps.Capture.Stop(ctx)
	if err != nil {
		c.setState(StateUserTurn)
		c.deps.Notifier.Alert("could not access your recording")
		return nil, &StageError{State: StateCapturing, Err: err}
	}

	if held < c.debounce {
		// Mis-tap, not an error: drop the artifact and go back to idle.
		if clip != nil {
			clip.Discard()
		}
		log.Printf("[turn] capture below %s debounce threshold, discarded", c.debounce)
		c.setState(StateUserTurn)
		return nil, nil
	}

	c.setState(StateEncoding)
	audioBase64, err := clip.EncodeBase64()
	if err != nil {
		c.setState(StateUserTurn)
		c.deps.Notifier.Alert("could not access your recording")
		return nil, &StageError{State: StateEncoding, Err: err}
	}

	return c.runFromTranscription(ctx, audioBase64)
}

// SubmitAudio runs an exchange from an already-encoded clip. This is the
// gateway entry point: the mobile client records and encodes on-device,
// then hands the base64 payload over.
func (c *Controller) SubmitAudio(ctx context.Context, audioBase64 string) (*Exchange, error) {
	if audioBase64 == "" {
		return nil, errors.New("turn: audio payload must not be empty")
	}

	c.mu.Lock()
	if c.state != StateUserTurn {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = StateAwaitingTranscription
	c.mu.Unlock()
	c.emit(StateAwaitingTranscription)

	return c.continueFromTranscription(ctx, audioBase64)
}

// SubmitText runs an exchange from typed text, skipping capture and
// transcription entirely.
func (c *Controller) SubmitText(ctx context.Context, text string) (*Exchange, error) {
	if text == "" {
		return nil, errors.New("turn: text must not be empty")
	}

	c.mu.Lock()
	if c.state != StateUserTurn {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	// Claimed here to make the busy check atomic; continueFromAnswer
	// emits the transition.
	c.state = StateAwaitingAnswer
	c.mu.Unlock()

	userMsg := chat.NewMessage(chat.RoleUser, text)
	c.append(userMsg)

	return c.continueFromAnswer(ctx, userMsg)
}

func (c *Controller) runFromTranscription(ctx context.Context, audioBase64 string) (*Exchange, error) {
	c.setState(StateAwaitingTranscription)
	return c.continueFromTranscription(ctx, audioBase64)
}

func (c *Controller) continueFromTranscription(ctx context.Context, audioBase64 string) (*Exchange, error) {
	if c.deps.Transcriber == nil {
		c.setState(StateUserTurn)
		return nil, errors.New("turn: no transcriber configured")
	}

	text, err := c.deps.Transcriber.Transcribe(ctx, audioBase64)
	if err != nil {
		// Failed transcription leaves no trace in the transcript.
		c.setState(StateUserTurn)
		c.deps.Notifier.Alert("could not transcribe your audio")
		return nil, &StageError{State: StateAwaitingTranscription, Err: err}
	}

	userMsg := chat.NewMessage(chat.RoleUser, text)
	userMsg.AudioBase64 = audioBase64
	c.append(userMsg)
	c.persist(ctx)

	return c.continueFromAnswer(ctx, userMsg)
}

func (c *Controller) continueFromAnswer(ctx context.Context, userMsg chat.Message) (*Exchange, error) {
	c.setState(StateAwaitingAnswer)

	answer, err := c.deps.Answerer.Answer(ctx, userMsg.Content)
	if err != nil {
		// The user's message stays: partial progress is preserved.
		c.persist(ctx)
		c.setState(StateUserTurn)
		c.deps.Notifier.Alert("could not reach the legal knowledge base")
		return nil, &StageError{State: StateAwaitingAnswer, Err: err}
	}

	assistantMsg := chat.NewMessage(chat.RoleAssistant, answer)
	c.append(assistantMsg)
	c.persist(ctx)

	exchange := &Exchange{UserMessage: userMsg, AssistantMessage: assistantMsg}

	c.setState(StateAwaitingSynthesis)
	kind := c.session.ModuleType
	audio, err := c.deps.Synthesizer.Synthesize(ctx, answer, kind)
	if err != nil {
		// Non-fatal: the text answer stands, only playback is skipped.
		c.setState(StateUserTurn)
		c.deps.Notifier.Warn("answer generated but audio failed; shown as text only")
		return exchange, nil
	}
	exchange.AudioBase64 = audio

	if c.deps.Player != nil {
		c.setState(StateSpeaking)
		// Last-writer-wins on the single audio output channel.
		c.deps.Player.Stop()
		if err := c.deps.Player.Play(ctx, audio); err != nil {
			c.setState(StateUserTurn)
			c.deps.Notifier.Warn("answer generated but playback failed")
			return exchange, nil
		}
		exchange.Spoke = true
	}

	c.setState(StateUserTurn)
	return exchange, nil
}

func (c *Controller) append(m chat.Message) {
	c.mu.Lock()
	c.session.Append(m)
	c.mu.Unlock()
}

// persist hands the mutated session to the persistence adapter. Failures
// are logged and never re-open or fail the turn. The save is detached from
// the turn's cancellation so a late abort cannot lose appended messages.
func (c *Controller) persist(ctx context.Context) {
	if c.deps.Saver == nil {
		return
	}
	if err := c.deps.Saver.Save(context.WithoutCancel(ctx), c.Session()); err != nil {
		log.Printf("[turn] persist session %s failed: %v", c.session.ID, err)
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(s)
}

func (c *Controller) emit(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
