// Package knowledge is the HTTP client for the external RAG service that
// grounds answers in legal source documents.
package knowledge

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/deleyapp/lawcopilot/internal/client"
)

const (
	queryPath  = "/api/v1/query"
	healthPath = "/api/v1/health"

	// DefaultTopK and DefaultScoreThreshold match the retrieval defaults
	// the RAG service documents for its query endpoint.
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.3
)

// Hierarchy locates a source excerpt inside its legal document.
type Hierarchy struct {
	Title   string `json:"title"`
	Chapter string `json:"chapter"`
	Section string `json:"section"`
}

// Source is one legal document excerpt an answer was grounded on.
type Source struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	Label           string    `json:"label"`
	Text            string    `json:"text"`
	Hierarchy       Hierarchy `json:"hierarchy"`
	SimilarityScore float64   `json:"similarity_score"`
}

// RewriteInfo describes how the service optimised the query before
// retrieval. Returned for transparency; nil when the service skips it.
type RewriteInfo struct {
	TemaLegal          string   `json:"tema_legal,omitempty"`
	ConceptosClave     []string `json:"conceptos_clave,omitempty"`
	QueriesOptimizadas []string `json:"queries_optimizadas,omitempty"`
	LeyesRelevantes    []string `json:"leyes_relevantes,omitempty"`
}

// QueryResponse is the RAG service's answer to one legal query.
type QueryResponse struct {
	Answer            string       `json:"answer"`
	Sources           []Source     `json:"sources"`
	Query             string       `json:"query"`
	TotalSourcesFound int          `json:"total_sources_found"`
	RewriteInfo       *RewriteInfo `json:"rewrite_info,omitempty"`
}

type queryRequest struct {
	Query          string  `json:"query"`
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// Client calls the RAG service's query endpoint.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	topK           int
	scoreThreshold float64
}

// Option configures a Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetrieval overrides the retrieval defaults sent with every query.
func WithRetrieval(topK int, scoreThreshold float64) Option {
	return func(c *Client) {
		c.topK = topK
		c.scoreThreshold = scoreThreshold
	}
}

// New creates a RAG service client. baseURL must be non-empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("knowledge: base URL must not be empty")
	}
	c := &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: client.DefaultTimeout},
		topK:           DefaultTopK,
		scoreThreshold: DefaultScoreThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Query sends one legal question and returns the grounded answer.
func (c *Client) Query(ctx context.Context, query string) (*QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("knowledge: query must not be empty")
	}

	req := queryRequest{
		Query:          query,
		TopK:           c.topK,
		ScoreThreshold: c.scoreThreshold,
	}

	var out QueryResponse
	url := client.JoinURL(c.baseURL, queryPath)
	if err := client.PostJSON(ctx, c.httpClient, url, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth reports whether the RAG service responds on its health
// endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	url := client.JoinURL(c.baseURL, healthPath)
	return client.GetJSON(ctx, c.httpClient, url, nil)
}
