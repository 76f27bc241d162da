package scoring

import (
	"context"
	"math"
	"strings"
)

var incidentKeywords = []string{"outage", "critical", "latency", "security", "data loss", "p1"}

// Heuristic is the pure local fallback scorer. It is deterministic and
// cheap: length-scaled base plus keyword bumps, clamped and rounded to two
// decimals so repeated scoring of the same text is stable.
func Heuristic(description string) float64 {
	if strings.TrimSpace(description) == "" {
		return 2.5
	}
	text := strings.ToLower(description)

	score := 1.0 + math.Min(float64(len(text))/300.0, 3.0)

	for _, kw := range incidentKeywords {
		if strings.Contains(text, kw) {
			score += 1.2
			break
		}
	}
	if strings.Contains(text, "architecture") || strings.Contains(text, "refactor") {
		score += 0.8
	}
	if strings.Contains(text, "simple") || strings.Contains(text, "typo") {
		score -= 0.5
	}

	return math.Round(Clamp(score)*100) / 100
}

// HeuristicScorer exposes the heuristic as a Scorer backend for deployments
// that run without an external oracle.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(_ context.Context, description string) (float64, error) {
	return Heuristic(description), nil
}
