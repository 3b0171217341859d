package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/calegrette/leaseguard/internal/ai"
	"github.com/calegrette/leaseguard/internal/incident"
)

type cannedProvider struct {
	reply string
	last  []ai.Message
}

func (p *cannedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.last = append([]ai.Message(nil), messages...)
	return p.reply, nil
}

func TestParseResult_ToleratesFencesAndProse(t *testing.T) {
	reply := "Sure, here is the analysis:\n```json\n" +
		`{"summary":"Landlord ignored repair requests.","evidence_score":8,"recommendation":"STRONG","next_steps":["file a complaint"]}` +
		"\n```\nLet me know if you need more."

	res, err := parseResult(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Summary != "Landlord ignored repair requests." {
		t.Fatalf("summary=%q", res.Summary)
	}
	if res.EvidenceScore != 8 {
		t.Fatalf("score=%d", res.EvidenceScore)
	}
	if res.Recommendation != RecommendationStrong {
		t.Fatalf("recommendation=%q", res.Recommendation)
	}
}

func TestParseResult_ClampsAndNormalizes(t *testing.T) {
	res, err := parseResult(`{"summary":"s","evidence_score":42,"recommendation":"definitely"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.EvidenceScore != 10 {
		t.Fatalf("score not clamped: %d", res.EvidenceScore)
	}
	if res.Recommendation != RecommendationModerate {
		t.Fatalf("unknown recommendation should default to moderate, got %q", res.Recommendation)
	}

	res, err = parseResult(`{"summary":"s","evidence_score":-2}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.EvidenceScore != 0 {
		t.Fatalf("score not clamped: %d", res.EvidenceScore)
	}
}

func TestParseResult_Rejects(t *testing.T) {
	if _, err := parseResult("no json here"); err == nil {
		t.Fatal("expected error for reply without JSON")
	}
	if _, err := parseResult(`{"evidence_score":5}`); err == nil {
		t.Fatal("expected error for empty summary")
	}
	if _, err := parseResult(`{"summary": broken`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestAnalyze_PromptSkipsChatLogs(t *testing.T) {
	prov := &cannedProvider{reply: `{"summary":"ok","evidence_score":5,"recommendation":"moderate"}`}
	svc := NewService(prov)

	inc := &incident.Incident{
		ID:        1,
		Title:     "Broken heater",
		Status:    incident.StatusOpen,
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	logs := []incident.Log{
		{Type: incident.LogCall, Title: "Called landlord", Content: "no answer", CreatedAt: inc.CreatedAt},
		{Type: incident.LogChat, Content: "private chat turn", CreatedAt: inc.CreatedAt},
	}

	res, err := svc.Analyze(context.Background(), inc, logs)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Summary != "ok" {
		t.Fatalf("summary=%q", res.Summary)
	}

	if len(prov.last) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(prov.last))
	}
	user := prov.last[1].Content
	if !strings.Contains(user, "Called landlord") {
		t.Fatalf("evidence log missing from prompt:\n%s", user)
	}
	if strings.Contains(user, "private chat turn") {
		t.Fatalf("chat turn leaked into prompt:\n%s", user)
	}
}
