package scoring

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const scorePrompt = `You are scoring support queries for engineering triage.
Return only a number between 1.0 (very simple) and 5.0 (very complex).
No text, no units, just the number.

Query: %s
`

var numberPattern = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// OllamaScorer asks a local LLM for a complexity estimate.
type OllamaScorer struct {
	client *api.Client
	model  string
}

func NewOllamaScorer(baseURL, model string) (*OllamaScorer, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &OllamaScorer{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

func (s *OllamaScorer) Score(ctx context.Context, description string) (float64, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  s.model,
		Prompt: fmt.Sprintf(scorePrompt, description),
		Stream: &stream,
	}

	var sb strings.Builder
	err := s.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ollama generate: %w", err)
	}

	return parseScore(sb.String())
}

// parseScore extracts the first numeric token from a model response. Models
// occasionally wrap the number in prose, so anything around it is ignored.
func parseScore(text string) (float64, error) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response %q", strings.TrimSpace(text))
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", match, err)
	}
	return score, nil
}
