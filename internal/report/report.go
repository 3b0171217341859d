package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/calegrette/leaseguard/internal/evidence"
	"github.com/calegrette/leaseguard/internal/incident"
)

// Evidence photo boxes, in mm.
const (
	photoW = 60.0
	photoH = 45.0

	attachedPhotoW = 50.0
	attachedPhotoH = 37.5
)

// assocWindow is the legacy fallback for locating a non-photo entry's
// photos: a "<type>_photo"-categorized photo created within this window
// after the entry. The parent_log_id reference is the source of truth;
// the window only catches photos that never got one.
const assocWindow = 60 * time.Second

type Generator struct {
	brand  string
	images ImageFetcher
}

func NewGenerator(brand string, images ImageFetcher) *Generator {
	if brand == "" {
		brand = "LeaseGuard"
	}
	return &Generator{brand: brand, images: images}
}

// RenderIncidentReport writes the full case report PDF: header, optional
// description, the chronological evidence timeline with inlined photos, and
// the AI consultation transcript. Image failures degrade to a placeholder
// line; any other error aborts the whole document.
func (g *Generator) RenderIncidentReport(ctx context.Context, inc *incident.Incident, logs []incident.Log, w io.Writer) error {
	d := newDoc(g.brand, time.Now())

	g.renderHeader(d, inc)
	if inc.Description != "" {
		d.setFont("", 10)
		d.writeParagraph(inc.Description, marginLeft)
		d.y += 4
	}

	g.renderEvidenceTimeline(ctx, d, logs)
	g.renderConsultationHistory(d, logs)

	if d.pdf.Err() {
		return fmt.Errorf("report: %w", d.pdf.Error())
	}
	return d.output(w)
}

func (g *Generator) renderHeader(d *doc, inc *incident.Incident) {
	d.setFont("B", 17)
	d.writeParagraph(inc.Title, marginLeft)
	d.y += 2

	if inc.Status == incident.StatusOpen {
		d.pill("OPEN", 22, 163, 74)
	} else {
		d.pill(strings.ToUpper(string(inc.Status)), 100, 116, 139)
	}
	d.setFont("", 9)
	d.pdf.SetTextColor(100, 116, 139)
	d.writeLine(marginLeft, "Created "+inc.CreatedAt.Format("January 2, 2006"))
	d.pdf.SetTextColor(0, 0, 0)
	d.y += 4
}

func isEvidenceType(t incident.LogType) bool {
	switch t {
	case incident.LogCall, incident.LogText, incident.LogEmail, incident.LogPhoto, incident.LogService:
		return true
	default:
		return false
	}
}

func (g *Generator) renderEvidenceTimeline(ctx context.Context, d *doc, logs []incident.Log) {
	entries := make([]incident.Log, 0, len(logs))
	for _, l := range logs {
		if isEvidenceType(l.Type) {
			entries = append(entries, l)
		}
	}
	if len(entries) == 0 {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	d.setFont("B", 13)
	d.checkPageBreak(lineHeight + 4)
	d.writeLine(marginLeft, "Evidence Timeline")
	d.y += 2

	for _, entry := range entries {
		g.renderEvidenceEntry(ctx, d, entry, logs)
	}
	d.y += 3
}

func (g *Generator) renderEvidenceEntry(ctx context.Context, d *doc, entry incident.Log, all []incident.Log) {
	d.checkPageBreak(3 * lineHeight)

	head := "[" + strings.ToUpper(string(entry.Type)) + "]"
	if entry.Title != "" {
		head += " " + entry.Title
	}
	d.setFont("B", 10.5)
	d.writeLine(marginLeft, head)

	d.setFont("", 8.5)
	d.pdf.SetTextColor(100, 116, 139)
	d.writeLine(marginLeft, entry.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
	d.pdf.SetTextColor(0, 0, 0)

	if entry.Content != "" {
		d.setFont("", 9.5)
		d.writeParagraph(entry.Content, marginLeft)
	}

	if entry.Type == incident.LogPhoto {
		if entry.FileURL != "" {
			g.placeImage(ctx, d, entry.FileURL, photoW, photoH)
		}
	} else {
		assoc := g.associatedPhotos(entry, all)
		if len(assoc) > 0 {
			d.setFont("B", 8.5)
			d.checkPageBreak(lineHeight)
			d.writeLine(marginLeft, "Attached Photos:")
			for _, p := range assoc {
				if p.FileURL == "" {
					continue
				}
				g.placeImage(ctx, d, p.FileURL, attachedPhotoW, attachedPhotoH)
			}
		}
	}
	d.y += 3
}

// associatedPhotos gathers the photos belonging to a non-photo evidence
// entry: first everything referencing it via parent_log_id, then the legacy
// time-window match for "<type>_photo" photos that carry no parent reference.
func (g *Generator) associatedPhotos(entry incident.Log, all []incident.Log) []incident.Log {
	photos := evidence.AttachedPhotos(entry, all)
	seen := make(map[uint64]bool, len(photos))
	for _, p := range photos {
		seen[p.ID] = true
	}

	wantCategory := string(entry.Type) + "_photo"
	for _, cand := range all {
		if cand.Type != incident.LogPhoto || seen[cand.ID] {
			continue
		}
		if _, hasParent := cand.ParentLogID(); hasParent {
			continue
		}
		if cand.Category() != wantCategory {
			continue
		}
		delta := cand.CreatedAt.Sub(entry.CreatedAt)
		if delta >= 0 && delta < assocWindow {
			photos = append(photos, cand)
			seen[cand.ID] = true
		}
	}
	return photos
}

func (g *Generator) placeImage(ctx context.Context, d *doc, url string, w, h float64) {
	var data []byte
	var err error
	if g.images != nil {
		data, err = g.images.Fetch(ctx, url)
	} else {
		err = fmt.Errorf("no image fetcher configured")
	}
	if err == nil && d.embedImage(data, w, h) {
		return
	}
	d.setFont("I", 8.5)
	d.pdf.SetTextColor(100, 116, 139)
	d.checkPageBreak(lineHeight)
	d.writeLine(marginLeft, "[Image could not be embedded]")
	d.pdf.SetTextColor(0, 0, 0)
}

func (g *Generator) renderConsultationHistory(d *doc, logs []incident.Log) {
	var chats []incident.Log
	for _, l := range logs {
		if l.Type == incident.LogChat {
			chats = append(chats, l)
		}
	}
	if len(chats) == 0 {
		return
	}

	d.setFont("B", 13)
	d.checkPageBreak(lineHeight + 4)
	d.writeLine(marginLeft, "AI Consultation History")
	d.y += 2

	for _, msg := range chats {
		d.checkPageBreak(3 * lineHeight)
		if msg.IsAI {
			d.pill("AI ASSISTANT", 124, 58, 237)
		} else {
			d.pill("YOU", 37, 99, 235)
		}
		d.setFont("", 8)
		d.pdf.SetTextColor(100, 116, 139)
		d.writeLine(marginLeft, msg.CreatedAt.Format("Jan 2, 2006 3:04 PM"))
		d.pdf.SetTextColor(0, 0, 0)

		d.renderMarkdown(msg.Content)
		d.y += 3
	}
}
