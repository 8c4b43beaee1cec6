// Package audio is the HTTP client for the external audio service, which
// owns speech-to-text and text-to-speech. The gateway never touches raw
// audio codecs; clips travel as base64 both ways.
package audio

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/deleyapp/lawcopilot/internal/client"
	"github.com/deleyapp/lawcopilot/internal/model/module"
)

const (
	transcribePath = "/internal/stt"
	synthesizePath = "/internal/tts"
	healthPath     = "/api/health"
)

// TranscriptionResponse is the audio service's STT reply.
type TranscriptionResponse struct {
	Text        string `json:"text"`
	ServiceUsed string `json:"service_used"`
}

// SynthesisResponse is the audio service's TTS reply.
type SynthesisResponse struct {
	AudioBase64 string `json:"audio_base64"`
	ServiceUsed string `json:"service_used"`
}

// Health is the audio service's aggregated health report.
type Health struct {
	Status     string `json:"status"`
	ElevenLabs string `json:"elevenlabs"`
	GoogleTTS  string `json:"google_tts"`
	GoogleSTT  string `json:"google_stt"`
	RAGService string `json:"rag_service"`
	Timestamp  string `json:"timestamp"`
}

type transcriptionRequest struct {
	AudioBase64 string `json:"audio_base64"`
}

type synthesisRequest struct {
	Text       string      `json:"text"`
	ModuleType module.Kind `json:"module_type"`
}

// Client calls the audio service's STT and TTS endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an audio service client. baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("audio: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: client.DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Transcribe converts a base64-encoded clip into text.
func (c *Client) Transcribe(ctx context.Context, audioBase64 string) (*TranscriptionResponse, error) {
	if audioBase64 == "" {
		return nil, errors.New("audio: audioBase64 must not be empty")
	}

	var out TranscriptionResponse
	url := client.JoinURL(c.baseURL, transcribePath)
	if err := client.PostJSON(ctx, c.httpClient, url, transcriptionRequest{AudioBase64: audioBase64}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synthesize converts answer text into a base64-encoded clip. The module
// kind selects the voice on the service side.
func (c *Client) Synthesize(ctx context.Context, text string, kind module.Kind) (*SynthesisResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("audio: text must not be empty")
	}
	if !kind.Valid() {
		return nil, errors.New("audio: invalid module kind")
	}

	var out SynthesisResponse
	url := client.JoinURL(c.baseURL, synthesizePath)
	if err := client.PostJSON(ctx, c.httpClient, url, synthesisRequest{Text: text, ModuleType: kind}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth queries the audio service's health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var out Health
	url := client.JoinURL(c.baseURL, healthPath)
	if err := client.GetJSON(ctx, c.httpClient, url, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
