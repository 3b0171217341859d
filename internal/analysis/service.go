package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/calegrette/leaseguard/internal/ai"
	"github.com/calegrette/leaseguard/internal/incident"
)

const systemPrompt = `You are a tenant-rights case analyst. Given a rental dispute and its evidence log, respond with ONLY a JSON object of this exact shape:
{
  "summary": "one-paragraph case summary",
  "evidence_score": 0-10 integer,
  "recommendation": "strong" | "moderate" | "weak",
  "violations": [{"code": "...", "description": "...", "severity": "low|medium|high"}],
  "timeline_analysis": "prose analysis of the chronology",
  "next_steps": ["..."],
  "strengths": ["..."],
  "weaknesses": ["..."]
}`

type Service struct {
	provider ai.Provider
}

func NewService(provider ai.Provider) *Service {
	return &Service{provider: provider}
}

// Analyze asks the AI provider for a structured case analysis of the incident
// and its full log list.
func (s *Service) Analyze(ctx context.Context, inc *incident.Incident, logs []incident.Log) (*Result, error) {
	if s.provider == nil {
		return nil, errors.New("analysis: no ai provider configured")
	}

	reply, err := s.provider.Chat(ctx, []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildCasePrompt(inc, logs)},
	})
	if err != nil {
		return nil, err
	}

	res, err := parseResult(reply)
	if err != nil {
		return nil, fmt.Errorf("analysis: unusable model reply: %w", err)
	}
	return res, nil
}

func buildCasePrompt(inc *incident.Incident, logs []incident.Log) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case: %s\nStatus: %s\nOpened: %s\n", inc.Title, inc.Status, inc.CreatedAt.Format("2006-01-02"))
	if inc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", inc.Description)
	}
	b.WriteString("\nEvidence log (chronological):\n")
	for _, l := range logs {
		if l.Type == incident.LogChat {
			continue
		}
		fmt.Fprintf(&b, "- %s [%s]", l.CreatedAt.Format("2006-01-02 15:04"), l.Type)
		if l.Title != "" {
			fmt.Fprintf(&b, " %s", l.Title)
		}
		if l.Content != "" {
			fmt.Fprintf(&b, ": %s", l.Content)
		}
		if l.FileURL != "" {
			b.WriteString(" (file attached)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseResult extracts the JSON object from a model reply, tolerating code
// fences and surrounding prose, and normalizes the fields.
func parseResult(reply string) (*Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in reply")
	}

	var res Result
	if err := json.Unmarshal([]byte(reply[start:end+1]), &res); err != nil {
		return nil, err
	}

	if res.EvidenceScore < 0 {
		res.EvidenceScore = 0
	}
	if res.EvidenceScore > 10 {
		res.EvidenceScore = 10
	}
	switch Recommendation(strings.ToLower(string(res.Recommendation))) {
	case RecommendationStrong:
		res.Recommendation = RecommendationStrong
	case RecommendationModerate:
		res.Recommendation = RecommendationModerate
	case RecommendationWeak:
		res.Recommendation = RecommendationWeak
	default:
		res.Recommendation = RecommendationModerate
	}
	if strings.TrimSpace(res.Summary) == "" {
		return nil, errors.New("empty summary")
	}
	return &res, nil
}
