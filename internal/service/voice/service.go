// Package voice ties the remote clients, the session store, and the
// educator roster into the complete turn pipeline the HTTP surface and the
// CLI tester drive.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/deleyapp/lawcopilot/internal/client/audio"
	"github.com/deleyapp/lawcopilot/internal/client/knowledge"
	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/educator"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/store"
	"github.com/deleyapp/lawcopilot/internal/turn"
)

// ErrNoEducator is returned when a module kind has no seeded educator.
var ErrNoEducator = errors.New("voice: no educator for module")

// Service runs voice and text turns against the external audio and
// knowledge services on behalf of one gateway process.
type Service struct {
	audio     *audio.Client
	knowledge *knowledge.Client
	sessions  store.Store
	educators educator.Store
	debounce  time.Duration
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithDebounce overrides the mis-tap threshold applied to captured turns.
func WithDebounce(d time.Duration) ServiceOption {
	return func(s *Service) { s.debounce = d }
}

// NewService wires the turn pipeline's collaborators together.
func NewService(audioClient *audio.Client, knowledgeClient *knowledge.Client, sessions store.Store, educators educator.Store, opts ...ServiceOption) *Service {
	s := &Service{
		audio:     audioClient,
		knowledge: knowledgeClient,
		sessions:  sessions,
		educators: educators,
		debounce:  turn.DefaultDebounce,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TurnInput describes one exchange request. Exactly one of Text and
// AudioBase64 must be set.
type TurnInput struct {
	Session     *chat.Session
	Text        string
	AudioBase64 string
	// OnState, when set, observes every controller state transition.
	OnState func(turn.State)
}

// Notice is a user-facing diagnostic raised during a turn.
type Notice struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// TurnResult is the outcome of one exchange, including the retrieval
// sources behind the answer.
type TurnResult struct {
	Exchange *turn.Exchange
	Sources  []knowledge.Source
	Notices  []Notice
}

// StartSession provisions a new session for the module kind. When
// educatorID is empty the module's default educator is used.
func (s *Service) StartSession(kind module.Kind, educatorID string) (chat.Session, error) {
	if !kind.Valid() {
		return chat.Session{}, fmt.Errorf("voice: invalid module kind %q", kind)
	}

	var (
		ed educator.Educator
		ok bool
	)
	if educatorID != "" {
		ed, ok = s.educators.FindByID(educatorID)
		if !ok {
			return chat.Session{}, fmt.Errorf("voice: educator %q not found", educatorID)
		}
		if ed.Module != kind {
			return chat.Session{}, fmt.Errorf("voice: educator %q belongs to module %q", educatorID, ed.Module)
		}
	} else {
		ed, ok = s.educators.DefaultForModule(kind)
		if !ok {
			return chat.Session{}, ErrNoEducator
		}
	}

	return chat.NewSession(kind, ed.ID, ed.Name, ed.Avatar), nil
}

// RunTurn executes one exchange against the remote services, mutating
// input.Session and persisting it through the session store. A turn-level
// failure is returned as the error; soft diagnostics land in
// TurnResult.Notices either way.
func (s *Service) RunTurn(ctx context.Context, input TurnInput) (*TurnResult, error) {
	if input.Session == nil {
		return nil, errors.New("voice: session must not be nil")
	}
	if (input.Text == "") == (input.AudioBase64 == "") {
		return nil, errors.New("voice: provide exactly one of text or audio")
	}

	answerer := &answerAdapter{client: s.knowledge}
	collector := &noticeCollector{}

	opts := []turn.Option{turn.WithDebounce(s.debounce)}
	if input.OnState != nil {
		opts = append(opts, turn.WithStateFunc(input.OnState))
	}

	controller, err := turn.New(input.Session, turn.Deps{
		Transcriber: &transcribeAdapter{client: s.audio},
		Answerer:    answerer,
		Synthesizer: &synthesizeAdapter{client: s.audio},
		Saver:       s.sessions,
		Notifier:    collector,
	}, opts...)
	if err != nil {
		return nil, err
	}

	var exchange *turn.Exchange
	if input.Text != "" {
		exchange, err = controller.SubmitText(ctx, input.Text)
	} else {
		exchange, err = controller.SubmitAudio(ctx, input.AudioBase64)
	}

	result := &TurnResult{
		Exchange: exchange,
		Sources:  answerer.lastSources,
		Notices:  collector.notices,
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// CheckHealth aggregates the health of both upstream services.
func (s *Service) CheckHealth(ctx context.Context) (audioStatus, ragStatus string) {
	audioStatus = "connected"
	if _, err := s.audio.CheckHealth(ctx); err != nil {
		log.Printf("[voice] audio service health check failed: %v", err)
		audioStatus = "unreachable"
	}

	ragStatus = "connected"
	if err := s.knowledge.CheckHealth(ctx); err != nil {
		log.Printf("[voice] rag service health check failed: %v", err)
		ragStatus = "unreachable"
	}
	return audioStatus, ragStatus
}

// Controller adapters bridging the remote clients to the turn interfaces.

type transcribeAdapter struct {
	client *audio.Client
}

func (a *transcribeAdapter) Transcribe(ctx context.Context, audioBase64 string) (string, error) {
	resp, err := a.client.Transcribe(ctx, audioBase64)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type answerAdapter struct {
	client      *knowledge.Client
	lastSources []knowledge.Source
}

func (a *answerAdapter) Answer(ctx context.Context, query string) (string, error) {
	resp, err := a.client.Query(ctx, query)
	if err != nil {
		return "", err
	}
	a.lastSources = resp.Sources
	return resp.Answer, nil
}

type synthesizeAdapter struct {
	client *audio.Client
}

func (a *synthesizeAdapter) Synthesize(ctx context.Context, text string, kind module.Kind) (string, error) {
	resp, err := a.client.Synthesize(ctx, text, kind)
	if err != nil {
		return "", err
	}
	return resp.AudioBase64, nil
}

type noticeCollector struct {
	notices []Notice
}

func (n *noticeCollector) Alert(msg string) {
	n.notices = append(n.notices, Notice{Level: "error", Message: msg})
}

func (n *noticeCollector) Warn(msg string) {
	n.notices = append(n.notices, Notice{Level: "warning", Message: msg})
}
