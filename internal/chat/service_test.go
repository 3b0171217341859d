package chat

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/ai"
	"github.com/calegrette/leaseguard/internal/incident"
)

type recordingProvider struct {
	last []ai.Message
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), messages...)
	return "ok", nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&incident.Incident{}, &incident.Log{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, prov ai.Provider, window int) (*Service, *incident.Service) {
	t.Helper()
	incidents := incident.NewService(incident.NewRepo(db), nil)
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return prov, nil
	})
	return NewService(incidents, reg, "fake", "default", window), incidents
}

func TestSendMessage_WritesUserAndAssistantLogs(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	svc, incidents := newTestService(t, db, prov, 20)

	inc, err := incidents.Create(context.Background(), 1, "Broken heater", "")
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	reply, assistantID, err := svc.SendMessage(context.Background(), 1, inc.ID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if assistantID == 0 {
		t.Fatalf("expected assistant log id to be set")
	}

	var logs []incident.Log
	if err := db.Where("incident_id = ? AND type = ?", inc.ID, incident.LogChat).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 chat logs, got %d", len(logs))
	}
	if logs[0].IsAI || logs[0].Content != "Hello" {
		t.Fatalf("unexpected user log: is_ai=%v content=%q", logs[0].IsAI, logs[0].Content)
	}
	if !logs[1].IsAI || logs[1].Content != "ok" {
		t.Fatalf("unexpected assistant log: is_ai=%v content=%q", logs[1].IsAI, logs[1].Content)
	}
}

func TestSendMessage_ForeignIncidentRejected(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	svc, incidents := newTestService(t, db, prov, 20)

	inc, err := incidents.Create(context.Background(), 1, "Broken heater", "")
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	if _, _, err := svc.SendMessage(context.Background(), 2, inc.ID, "Hello"); err == nil {
		t.Fatal("expected error for foreign incident")
	}
	if prov.last != nil {
		t.Fatalf("provider must not be called, got %d messages", len(prov.last))
	}
}

func TestSendMessage_UsesContextWindow(t *testing.T) {
	db := openTestDB(t)
	prov := &recordingProvider{}
	window := 3
	svc, incidents := newTestService(t, db, prov, window)

	inc, err := incidents.Create(context.Background(), 2, "Mold", "")
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	// seed history: 5 chat turns already stored
	for i := 0; i < 5; i++ {
		if err := incidents.AddLog(context.Background(), &incident.Log{
			IncidentID: inc.ID,
			Type:       incident.LogChat,
			Content:    "seed",
			IsAI:       i%2 == 1,
		}); err != nil {
			t.Fatalf("seed log %d: %v", i, err)
		}
	}

	_, _, err = svc.SendMessage(context.Background(), 2, inc.ID, "new")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}

	// system prompt plus the `window` most recent chat logs
	if len(prov.last) != window+1 {
		t.Fatalf("expected provider to receive %d messages, got %d", window+1, len(prov.last))
	}
	if prov.last[0].Role != "system" {
		t.Fatalf("expected system prompt first, got role=%q", prov.last[0].Role)
	}
	last := prov.last[len(prov.last)-1]
	if last.Role != "user" || last.Content != "new" {
		t.Fatalf("expected last provider msg to be new user msg, got role=%q content=%q", last.Role, last.Content)
	}
}
