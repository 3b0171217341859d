package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/incident"
	"github.com/calegrette/leaseguard/internal/notify"
	"github.com/calegrette/leaseguard/internal/storage"
)

// RenderAnalysis writes the AI case analysis as sequential heading+body
// blocks. No images, tables or markdown here; plain wrapped paragraphs only.
func (g *Generator) RenderAnalysis(inc *incident.Incident, res *analysis.Result, w io.Writer) error {
	d := newDoc(g.brand, time.Now())

	d.setFont("B", 16)
	d.writeLine(marginLeft, "Case Analysis Report")
	d.setFont("", 10.5)
	d.pdf.SetTextColor(100, 116, 139)
	d.writeParagraph(inc.Title, marginLeft)
	d.pdf.SetTextColor(0, 0, 0)
	d.y += 4

	section := func(title string) {
		d.setFont("B", 12)
		d.checkPageBreak(lineHeight + 4)
		d.y += 2
		d.writeLine(marginLeft, title)
		d.y += 1
		d.setFont("", 9.5)
	}

	section("Summary")
	d.writeParagraph(res.Summary, marginLeft)

	section("Case Strength")
	d.writeParagraph(fmt.Sprintf("Evidence score: %d/10", res.EvidenceScore), marginLeft)
	d.writeParagraph("Recommendation: "+recommendationLabel(res.Recommendation), marginLeft)

	if len(res.Violations) > 0 {
		section("Potential Violations")
		for _, v := range res.Violations {
			head := v.Code
			if v.Severity != "" {
				head += " (" + v.Severity + " severity)"
			}
			d.setFont("B", 9.5)
			d.writeParagraph(head, marginLeft)
			d.setFont("", 9.5)
			d.writeParagraph(v.Description, marginLeft+4)
			d.y += 1
		}
	}

	if res.TimelineAnalysis != "" {
		section("Timeline Analysis")
		d.writeParagraph(res.TimelineAnalysis, marginLeft)
	}

	if len(res.NextSteps) > 0 {
		section("Next Steps")
		for i, step := range res.NextSteps {
			d.writeParagraph(fmt.Sprintf("%d. %s", i+1, step), marginLeft)
		}
	}

	if len(res.Strengths) > 0 {
		section("Strengths")
		for _, s := range res.Strengths {
			d.writeParagraph("- "+s, marginLeft)
		}
	}
	if len(res.Weaknesses) > 0 {
		section("Weaknesses")
		for _, s := range res.Weaknesses {
			d.writeParagraph("- "+s, marginLeft)
		}
	}

	if d.pdf.Err() {
		return fmt.Errorf("analysis report: %w", d.pdf.Error())
	}
	return d.output(w)
}

func recommendationLabel(r analysis.Recommendation) string {
	switch r {
	case analysis.RecommendationStrong:
		return "Strong case"
	case analysis.RecommendationModerate:
		return "Moderate case"
	case analysis.RecommendationWeak:
		return "Weak case"
	default:
		return string(r)
	}
}

// AnalysisExporter renders an analysis result to PDF, uploads it and files
// it back as an analysis_pdf document log on the incident, which surfaces it
// in the gallery's "AI Analysis PDFs" group. A failure anywhere leaves the
// incident untouched: no log row, no cache invalidation.
type AnalysisExporter struct {
	gen       *Generator
	uploader  storage.Uploader
	incidents *incident.Service
	notifier  notify.Notifier
}

func NewAnalysisExporter(gen *Generator, uploader storage.Uploader, incidents *incident.Service, notifier notify.Notifier) *AnalysisExporter {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &AnalysisExporter{gen: gen, uploader: uploader, incidents: incidents, notifier: notifier}
}

func (e *AnalysisExporter) Export(ctx context.Context, inc *incident.Incident, res *analysis.Result) (*incident.Log, error) {
	var buf bytes.Buffer
	if err := e.gen.RenderAnalysis(inc, res, &buf); err != nil {
		e.notifier.Notify("Analysis export failed", "The analysis PDF could not be generated.", notify.VariantError)
		return nil, err
	}

	key := fmt.Sprintf("incidents/%d/analysis/%s.pdf", inc.ID, uuid.NewString())
	url, err := e.uploader.Upload(ctx, key, buf.Bytes(), "application/pdf")
	if err != nil {
		e.notifier.Notify("Analysis export failed", "The analysis PDF could not be uploaded.", notify.VariantError)
		return nil, err
	}

	l := &incident.Log{
		IncidentID: inc.ID,
		Type:       incident.LogDocument,
		Title:      "Case Analysis Report",
		Content:    res.Summary,
		FileURL:    url,
		Metadata: map[string]interface{}{
			incident.MetaCategory: incident.CategoryAnalysisPDF,
		},
	}
	if err := e.incidents.AddLog(ctx, l); err != nil {
		e.notifier.Notify("Analysis export failed", "The analysis PDF could not be saved to the case.", notify.VariantError)
		return nil, err
	}

	e.notifier.Notify("Analysis exported", "The case analysis PDF was added to your evidence.", notify.VariantSuccess)
	return l, nil
}
