package analysis

import (
	"context"
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
	if err := db.AutoMigrate(&Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateJobOrGetExisting_Idempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	key := "retry-abc"
	first := &Job{ID: "01JOB0000000000000000000001", UserID: 1, IncidentID: 5, IdempotencyKey: &key, Status: JobQueued}

	got, created, err := repo.CreateJobOrGetExisting(context.Background(), first)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created || got.ID != first.ID {
		t.Fatalf("created=%v id=%q", created, got.ID)
	}

	// same user, same key, new job id: must return the original
	second := &Job{ID: "01JOB0000000000000000000002", UserID: 1, IncidentID: 5, IdempotencyKey: &key, Status: JobQueued}
	got, created, err = repo.CreateJobOrGetExisting(context.Background(), second)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if created {
		t.Fatal("retry must not create a new job")
	}
	if got.ID != first.ID {
		t.Fatalf("got id=%q want %q", got.ID, first.ID)
	}
}

func TestCreateJobOrGetExisting_NoKeyAlwaysCreates(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	for i, id := range []string{"01JOB0000000000000000000003", "01JOB0000000000000000000004"} {
		j := &Job{ID: id, UserID: 2, IncidentID: 5, Status: JobQueued}
		_, created, err := repo.CreateJobOrGetExisting(context.Background(), j)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if !created {
			t.Fatalf("create %d: expected a fresh job", i)
		}
	}
}

func TestJobStatusTransitions(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	j := &Job{ID: "01JOB0000000000000000000005", UserID: 1, IncidentID: 5, Status: JobQueued}
	if err := repo.CreateJob(context.Background(), j); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateJobStatusRunning(context.Background(), j.ID); err != nil {
		t.Fatalf("running: %v", err)
	}
	if err := repo.MarkJobSucceeded(context.Background(), j.ID, 42); err != nil {
		t.Fatalf("succeed: %v", err)
	}

	got, err := repo.GetJobByID(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != JobSucceeded {
		t.Fatalf("status=%q", got.Status)
	}
	if got.ResultLogID == nil || *got.ResultLogID != 42 {
		t.Fatalf("result_log_id=%v", got.ResultLogID)
	}

	if err := repo.MarkJobFailed(context.Background(), j.ID, "provider down"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err = repo.GetJobByID(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != JobFailed || got.Error == nil || *got.Error != "provider down" {
		t.Fatalf("status=%q error=%v", got.Status, got.Error)
	}
	if got.ResultLogID != nil {
		t.Fatalf("result_log_id should be cleared, got %v", got.ResultLogID)
	}
}
