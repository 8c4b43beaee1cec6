package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
)

type fakeClip struct {
	audio     string
	encodeErr error
	discarded bool
}

func (c *fakeClip) EncodeBase64() (string, error) { return c.audio, c.encodeErr }
func (c *fakeClip) Discard()                      { c.discarded = true }

type fakeCapture struct {
	clip     *fakeClip
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (f *fakeCapture) Start(ctx context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeCapture) Stop(ctx context.Context) (Clip, error) {
	f.stopped = true
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.clip, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioBase64 string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeAnswerer struct {
	answer string
	err    error
	calls  int
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeSynthesizer struct {
	audio string
	err   error
	calls int
	kind  module.Kind
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string, kind module.Kind) (string, error) {
	f.calls++
	f.kind = kind
	return f.audio, f.err
}

type fakePlayer struct {
	playErr error
	played  []string
	stops   int
}

func (f *fakePlayer) Play(ctx context.Context, audioBase64 string) error {
	f.played = append(f.played, audioBase64)
	return f.playErr
}

func (f *fakePlayer) Stop() { f.stops++ }

type fakeSaver struct {
	mu    sync.Mutex
	saves []chat.Session
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, s chat.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, s)
	return f.err
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeNotifier struct {
	alerts   []string
	warnings []string
}

func (f *fakeNotifier) Alert(msg string) { f.alerts = append(f.alerts, msg) }
func (f *fakeNotifier) Warn(msg string)  { f.warnings = append(f.warnings, msg) }

func newTestSession() *chat.Session {
	s := chat.NewSession(module.KindTeaching, "lucia-ramos", "Lucía Ramos", "")
	return &s
}

func newTestDeps() (Deps, *fakeTranscriber, *fakeAnswerer, *fakeSynthesizer, *fakeSaver, *fakeNotifier) {
	transcriber := &fakeTranscriber{text: "¿Cuáles son mis derechos?"}
	answerer := &fakeAnswerer{answer: "Tiene derecho a vacaciones pagadas."}
	synthesizer := &fakeSynthesizer{audio: "c3ludGhlc2l6ZWQ="}
	saver := &fakeSaver{}
	notifier := &fakeNotifier{}
	deps := Deps{
		Transcriber: transcriber,
		Answerer:    answerer,
		Synthesizer: synthesizer,
		Saver:       saver,
		Notifier:    notifier,
	}
	return deps, transcriber, answerer, synthesizer, saver, notifier
}

func TestSubmitTextFullExchange(t *testing.T) {
	session := newTestSession()
	deps, _, answerer, synthesizer, saver, notifier := newTestDeps()

	var states []State
	c, err := New(session, deps, WithStateFunc(func(s State) { states = append(states, s) }))
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.Equal(t, chat.RoleUser, exchange.UserMessage.Role)
	assert.Equal(t, "¿Cuáles son mis derechos?", exchange.UserMessage.Content)
	assert.Equal(t, chat.RoleAssistant, exchange.AssistantMessage.Role)
	assert.Equal(t, "Tiene derecho a vacaciones pagadas.", exchange.AssistantMessage.Content)
	assert.Equal(t, "c3ludGhlc2l6ZWQ=", exchange.AudioBase64)

	got := c.Session()
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.RoleUser, got.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, got.Messages[1].Timestamp, got.LastMessageAt)

	assert.Equal(t, 1, answerer.calls)
	assert.Equal(t, 1, synthesizer.calls)
	assert.Equal(t, module.KindTeaching, synthesizer.kind)
	assert.GreaterOrEqual(t, saver.count(), 1)
	assert.Empty(t, notifier.alerts)
	assert.Empty(t, notifier.warnings)

	assert.Equal(t, []State{StateAwaitingAnswer, StateAwaitingSynthesis, StateUserTurn}, states)
	assert.Equal(t, StateUserTurn, c.State())
}

func TestSubmitAudioFullExchange(t *testing.T) {
	session := newTestSession()
	deps, transcriber, _, _, _, _ := newTestDeps()

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitAudio(context.Background(), "cmVjb3JkaW5n")
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.Equal(t, 1, transcriber.calls)
	assert.Equal(t, transcriber.text, exchange.UserMessage.Content)
	assert.Equal(t, "cmVjb3JkaW5n", exchange.UserMessage.AudioBase64)
	assert.Len(t, c.Session().Messages, 2)
}

func TestTranscriptionFailureLeavesNoTrace(t *testing.T) {
	session := newTestSession()
	deps, transcriber, answerer, _, saver, notifier := newTestDeps()
	transcriber.err = errors.New("stt unavailable")

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitAudio(context.Background(), "cmVjb3JkaW5n")
	require.Error(t, err)
	assert.Nil(t, exchange)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StateAwaitingTranscription, stageErr.State)

	assert.Empty(t, c.Session().Messages)
	assert.Equal(t, 0, answerer.calls)
	assert.Equal(t, 0, saver.count())
	assert.Equal(t, []string{"could not transcribe your audio"}, notifier.alerts)
	assert.Equal(t, StateUserTurn, c.State())
}

func TestAnswerFailureKeepsUserMessage(t *testing.T) {
	session := newTestSession()
	deps, _, answerer, synthesizer, saver, notifier := newTestDeps()
	answerer.err = errors.New("rag returned 500")

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.Error(t, err)
	assert.Nil(t, exchange)

	got := c.Session()
	require.Len(t, got.Messages, 1)
	assert.Equal(t, chat.RoleUser, got.Messages[0].Role)

	assert.Equal(t, 0, synthesizer.calls)
	assert.Equal(t, 1, saver.count())
	assert.Equal(t, []string{"could not reach the legal knowledge base"}, notifier.alerts)
	assert.Empty(t, notifier.warnings)
	assert.Equal(t, StateUserTurn, c.State())
}

func TestSynthesisFailureDowngradesToText(t *testing.T) {
	session := newTestSession()
	deps, _, _, synthesizer, _, notifier := newTestDeps()
	synthesizer.err = errors.New("tts unavailable")
	player := &fakePlayer{}
	deps.Player = player

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.Empty(t, exchange.AudioBase64)
	assert.False(t, exchange.Spoke)
	assert.Empty(t, player.played)

	got := c.Session()
	assert.Len(t, got.Messages, 2)
	assert.Empty(t, notifier.alerts)
	assert.Equal(t, []string{"answer generated but audio failed; shown as text only"}, notifier.warnings)
	assert.Equal(t, StateUserTurn, c.State())
}

func TestPlaybackFailureKeepsExchange(t *testing.T) {
	session := newTestSession()
	deps, _, _, _, _, notifier := newTestDeps()
	player := &fakePlayer{playErr: errors.New("audio device busy")}
	deps.Player = player

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.False(t, exchange.Spoke)
	assert.NotEmpty(t, exchange.AudioBase64)
	assert.Equal(t, []string{"answer generated but playback failed"}, notifier.warnings)
}

func TestPlayerStopBeforePlay(t *testing.T) {
	session := newTestSession()
	deps, _, _, _, _, _ := newTestDeps()
	player := &fakePlayer{}
	deps.Player = player

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.NoError(t, err)
	assert.True(t, exchange.Spoke)
	assert.Equal(t, 1, player.stops)
	assert.Equal(t, []string{"c3ludGhlc2l6ZWQ="}, player.played)
}

func TestDebounceDiscardsShortCapture(t *testing.T) {
	session := newTestSession()
	deps, transcriber, answerer, synthesizer, saver, notifier := newTestDeps()

	clip := &fakeClip{audio: "cmVjb3JkaW5n"}
	deps.Capture = &fakeCapture{clip: clip}

	current := time.Now()
	c, err := New(session, deps,
		WithDebounce(500*time.Millisecond),
		WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, c.BeginCapture(context.Background()))

	// Release 200ms after press, under the threshold.
	current = current.Add(200 * time.Millisecond)
	exchange, err := c.EndCapture(context.Background())
	require.NoError(t, err)
	assert.Nil(t, exchange)

	assert.True(t, clip.discarded)
	assert.Equal(t, 0, transcriber.calls)
	assert.Equal(t, 0, answerer.calls)
	assert.Equal(t, 0, synthesizer.calls)
	assert.Equal(t, 0, saver.count())
	assert.Empty(t, notifier.alerts)
	assert.Empty(t, c.Session().Messages)
	assert.Equal(t, StateUserTurn, c.State())
}

func TestCaptureAboveDebounceRunsExchange(t *testing.T) {
	session := newTestSession()
	deps, transcriber, _, _, _, _ := newTestDeps()

	clip := &fakeClip{audio: "cmVjb3JkaW5n"}
	deps.Capture = &fakeCapture{clip: clip}

	current := time.Now()
	c, err := New(session, deps,
		WithDebounce(500*time.Millisecond),
		WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, c.BeginCapture(context.Background()))

	current = current.Add(2 * time.Second)
	exchange, err := c.EndCapture(context.Background())
	require.NoError(t, err)
	require.NotNil(t, exchange)

	assert.False(t, clip.discarded)
	assert.Equal(t, 1, transcriber.calls)
	assert.Len(t, c.Session().Messages, 2)
}

func TestEndCaptureWithoutBegin(t *testing.T) {
	session := newTestSession()
	deps, _, _, _, _, _ := newTestDeps()
	deps.Capture = &fakeCapture{clip: &fakeClip{}}

	c, err := New(session, deps)
	require.NoError(t, err)

	_, err = c.EndCapture(context.Background())
	assert.ErrorIs(t, err, ErrNotCapturing)
}

func TestBusyWhileExchangeInFlight(t *testing.T) {
	session := newTestSession()
	deps, _, answerer, _, _, _ := newTestDeps()

	release := make(chan struct{})
	entered := make(chan struct{})
	deps.Answerer = answererFunc(func(ctx context.Context, query string) (string, error) {
		close(entered)
		<-release
		return answerer.answer, nil
	})

	c, err := New(session, deps)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.SubmitText(context.Background(), "primera pregunta")
	}()

	<-entered
	_, err = c.SubmitText(context.Background(), "segunda pregunta")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.SubmitAudio(context.Background(), "cmVjb3JkaW5n")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done

	assert.Len(t, c.Session().Messages, 2)
}

type answererFunc func(ctx context.Context, query string) (string, error)

func (f answererFunc) Answer(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

func TestPersistFailureDoesNotFailTurn(t *testing.T) {
	session := newTestSession()
	deps, _, _, _, saver, notifier := newTestDeps()
	saver.err = errors.New("disk full")

	c, err := New(session, deps)
	require.NoError(t, err)

	exchange, err := c.SubmitText(context.Background(), "¿Cuáles son mis derechos?")
	require.NoError(t, err)
	require.NotNil(t, exchange)
	assert.Empty(t, notifier.alerts)
}

func TestNewValidatesDeps(t *testing.T) {
	session := newTestSession()
	deps, _, _, _, _, _ := newTestDeps()

	_, err := New(nil, deps)
	assert.Error(t, err)

	missing := deps
	missing.Answerer = nil
	_, err = New(session, missing)
	assert.Error(t, err)

	missing = deps
	missing.Synthesizer = nil
	_, err = New(session, missing)
	assert.Error(t, err)

	missing = deps
	missing.Notifier = nil
	_, err = New(session, missing)
	assert.Error(t, err)
}
