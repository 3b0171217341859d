package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/incident"
)

func testResult() *analysis.Result {
	return &analysis.Result{
		Summary:        "Landlord failed to repair heating for three weeks despite repeated notice.",
		EvidenceScore:  8,
		Recommendation: analysis.RecommendationStrong,
		Violations: []analysis.Violation{
			{Code: "Habitability", Description: "No heat during winter months.", Severity: "high"},
		},
		TimelineAnalysis: "The gap between first notice and any response spans 21 days.",
		NextSteps:        []string{"Send a written repair demand", "Contact the local housing authority"},
		Strengths:        []string{"Dated photos of the thermostat"},
		Weaknesses:       []string{"No written replies from the landlord"},
	}
}

func TestRenderAnalysis_WritesPDF(t *testing.T) {
	g := NewGenerator("LeaseGuard", nil)

	var buf bytes.Buffer
	if err := g.RenderAnalysis(testIncident(), testResult(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF")
	}
}

type fakeUploader struct {
	key         string
	contentType string
	size        int
	err         error
}

func (u *fakeUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_ = ctx
	if u.err != nil {
		return "", u.err
	}
	u.key = key
	u.contentType = contentType
	u.size = len(data)
	return "https://files.example.com/" + key, nil
}

func openExportTestDB(t *testing.T) *gorm.DB {
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

func TestAnalysisExporter_FilesResultAsDocumentLog(t *testing.T) {
	db := openExportTestDB(t)
	incidents := incident.NewService(incident.NewRepo(db), nil)

	inc, err := incidents.Create(context.Background(), 1, "Broken heater", "")
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	up := &fakeUploader{}
	exp := NewAnalysisExporter(NewGenerator("LeaseGuard", nil), up, incidents, nil)

	res := testResult()
	l, err := exp.Export(context.Background(), inc, res)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if up.contentType != "application/pdf" || up.size == 0 {
		t.Fatalf("upload: contentType=%q size=%d", up.contentType, up.size)
	}
	wantPrefix := "incidents/1/analysis/"
	if !strings.HasPrefix(up.key, wantPrefix) || !strings.HasSuffix(up.key, ".pdf") {
		t.Fatalf("upload key=%q", up.key)
	}

	if l.Type != incident.LogDocument || l.Title != "Case Analysis Report" {
		t.Fatalf("log type=%q title=%q", l.Type, l.Title)
	}
	if l.Content != res.Summary {
		t.Fatalf("log content=%q", l.Content)
	}
	if l.Category() != incident.CategoryAnalysisPDF {
		t.Fatalf("log category=%q", l.Category())
	}

	logs, err := incidents.Logs(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].FileURL == "" {
		t.Fatalf("persisted logs=%+v", logs)
	}
}

func TestAnalysisExporter_UploadFailureLeavesNoLog(t *testing.T) {
	db := openExportTestDB(t)
	incidents := incident.NewService(incident.NewRepo(db), nil)

	inc, err := incidents.Create(context.Background(), 1, "Broken heater", "")
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	up := &fakeUploader{err: errors.New("bucket gone")}
	exp := NewAnalysisExporter(NewGenerator("LeaseGuard", nil), up, incidents, nil)

	if _, err := exp.Export(context.Background(), inc, testResult()); err == nil {
		t.Fatal("expected upload error")
	}

	logs, err := incidents.Logs(context.Background(), inc.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("no log must be filed on failure, got %d", len(logs))
	}
}
