package incident

import (
	"context"
	"errors"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Incident{}, &Log{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type fakeCache struct {
	store       map[uint64][]Log
	gets, sets  int
	invalidates int
	failReads   bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[uint64][]Log)}
}

func (c *fakeCache) GetIncidentLogs(ctx context.Context, incidentID uint64) ([]Log, bool, error) {
	_ = ctx
	c.gets++
	if c.failReads {
		return nil, false, errors.New("cache down")
	}
	logs, ok := c.store[incidentID]
	return logs, ok, nil
}

func (c *fakeCache) SetIncidentLogs(ctx context.Context, incidentID uint64, logs []Log) error {
	_ = ctx
	c.sets++
	c.store[incidentID] = logs
	return nil
}

func (c *fakeCache) InvalidateIncidentLogs(ctx context.Context, incidentID uint64) error {
	_ = ctx
	c.invalidates++
	delete(c.store, incidentID)
	return nil
}

func TestGetOwned_ForeignIncidentHidden(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil)

	inc, err := svc.Create(context.Background(), 1, "Broken lock", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetOwned(context.Background(), 1, inc.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}

	_, err = svc.GetOwned(context.Background(), 2, inc.ID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found for foreign user, got %v", err)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil)

	inc, err := svc.Create(context.Background(), 1, "Noise complaint", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), 1, inc.ID, "escalated"); err == nil {
		t.Fatal("expected invalid status error")
	}
	if err := svc.UpdateStatus(context.Background(), 1, inc.ID, StatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got, err := svc.GetOwned(context.Background(), 1, inc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusResolved {
		t.Fatalf("status=%q", got.Status)
	}
}

func TestLogs_ReadThroughCache(t *testing.T) {
	db := openTestDB(t)
	cache := newFakeCache()
	svc := NewService(NewRepo(db), cache)

	inc, err := svc.Create(context.Background(), 1, "Leak", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddLog(context.Background(), &Log{IncidentID: inc.ID, Type: LogNote, Content: "first"}); err != nil {
		t.Fatalf("add log: %v", err)
	}

	// miss, then fill
	logs, err := svc.Logs(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || cache.sets != 1 {
		t.Fatalf("logs=%d sets=%d", len(logs), cache.sets)
	}

	// hit: served from cache, no second fill
	if _, err := svc.Logs(context.Background(), inc.ID); err != nil {
		t.Fatalf("logs: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected cached read, sets=%d", cache.sets)
	}
}

func TestLogs_CacheErrorDegradesToDB(t *testing.T) {
	db := openTestDB(t)
	cache := newFakeCache()
	cache.failReads = true
	svc := NewService(NewRepo(db), cache)

	inc, err := svc.Create(context.Background(), 1, "Leak", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddLog(context.Background(), &Log{IncidentID: inc.ID, Type: LogNote, Content: "first"}); err != nil {
		t.Fatalf("add log: %v", err)
	}

	logs, err := svc.Logs(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("logs should fall back to db, got %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs=%d", len(logs))
	}
}

func TestAddLog_InvalidatesCache(t *testing.T) {
	db := openTestDB(t)
	cache := newFakeCache()
	svc := NewService(NewRepo(db), cache)

	inc, err := svc.Create(context.Background(), 1, "Leak", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AddLog(context.Background(), &Log{IncidentID: inc.ID, Type: LogNote, Content: "first"}); err != nil {
		t.Fatalf("add log: %v", err)
	}
	if _, err := svc.Logs(context.Background(), inc.ID); err != nil {
		t.Fatalf("logs: %v", err)
	}
	if err := svc.AddLog(context.Background(), &Log{IncidentID: inc.ID, Type: LogNote, Content: "second"}); err != nil {
		t.Fatalf("add log: %v", err)
	}

	logs, err := svc.Logs(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("stale cache: logs=%d", len(logs))
	}
	if cache.invalidates < 2 {
		t.Fatalf("invalidates=%d", cache.invalidates)
	}
}

func TestRecentChatLogsDesc_OnlyChat(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewRepo(db), nil)

	inc, err := svc.Create(context.Background(), 1, "Chat", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, l := range []*Log{
		{IncidentID: inc.ID, Type: LogNote, Content: "note"},
		{IncidentID: inc.ID, Type: LogChat, Content: "hi"},
		{IncidentID: inc.ID, Type: LogChat, Content: "hello", IsAI: true},
	} {
		if err := svc.AddLog(context.Background(), l); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}

	logs, err := svc.RecentChatLogsDesc(context.Background(), inc.ID, 10)
	if err != nil {
		t.Fatalf("recent chat: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs=%d", len(logs))
	}
	// newest first
	if logs[0].Content != "hello" || !logs[0].IsAI {
		t.Fatalf("logs[0]=%+v", logs[0])
	}
}
