package evidence

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/calegrette/leaseguard/internal/incident"
)

type FileGroupKind string

const (
	GroupIncidentPhotos FileGroupKind = "incident_photos"
	GroupEvent          FileGroupKind = "event"
	GroupChatFiles      FileGroupKind = "chat_files"
	GroupOtherPhotos    FileGroupKind = "other_photos"
	GroupAnalysisPDFs   FileGroupKind = "analysis_pdfs"
	GroupDocuments      FileGroupKind = "documents"
)

// FileGroup is one named bucket of evidence files for the gallery view.
type FileGroup struct {
	ID    string         `json:"id"`
	Kind  FileGroupKind  `json:"kind"`
	Label string         `json:"label"`
	Icon  string         `json:"icon"`
	Color string         `json:"color"`
	Files []incident.Log `json:"files"`
}

var groupStyles = map[incident.LogType]struct{ icon, color string }{
	incident.LogCall:    {"phone", "blue"},
	incident.LogText:    {"message", "green"},
	incident.LogEmail:   {"mail", "purple"},
	incident.LogService: {"wrench", "orange"},
	incident.LogPhoto:   {"image", "blue"},
	incident.LogNote:    {"file", "slate"},
}

func styleFor(t incident.LogType) (string, string) {
	if s, ok := groupStyles[t]; ok {
		return s.icon, s.color
	}
	return "file", "slate"
}

const labelContentMax = 30

func eventLabel(l incident.Log) string {
	name := l.Title
	if name == "" {
		name = l.Content
		if utf8.RuneCountInString(name) > labelContentMax {
			name = string([]rune(name)[:labelContentMax]) + "…"
		}
	}
	typ := string(l.Type)
	if typ != "" {
		typ = strings.ToUpper(typ[:1]) + typ[1:]
	}
	return typ + ": " + name
}

// BuildFileGroups partitions the incident's photo and document logs into
// gallery groups. Claiming is strict priority order: incident cover photos,
// per-event attachment bundles, chat files, leftover photos, leftover
// documents (analysis PDFs split out). A file belongs to at most one group;
// together with the leftover steps the result is a partition of every photo
// and document in the input.
func BuildFileGroups(logs []incident.Log, inc *incident.Incident) []FileGroup {
	groups := make([]FileGroup, 0, 4)
	used := make(map[uint64]bool)

	// 1. Incident cover photos, only with incident context.
	if inc != nil {
		var cover []incident.Log
		for _, l := range logs {
			if l.Type == incident.LogPhoto && l.Category() == incident.CategoryIncidentPhoto {
				cover = append(cover, l)
				used[l.ID] = true
			}
		}
		if len(cover) > 0 {
			groups = append(groups, FileGroup{
				ID:    "incident-photos",
				Kind:  GroupIncidentPhotos,
				Label: inc.Title,
				Icon:  "image",
				Color: "blue",
				Files: cover,
			})
		}
	}

	// 2. Per-event bundles: the event log's own file (titled photos) plus
	// everything parented to it.
	candidates := make([]incident.Log, 0, len(logs))
	for _, l := range logs {
		switch l.Type {
		case incident.LogCall, incident.LogText, incident.LogEmail, incident.LogService, incident.LogNote:
			candidates = append(candidates, l)
		case incident.LogPhoto:
			if l.Title != "" {
				candidates = append(candidates, l)
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for _, cand := range candidates {
		var files []incident.Log
		if cand.Type == incident.LogPhoto && cand.FileURL != "" && !used[cand.ID] {
			files = append(files, cand)
			used[cand.ID] = true
		}
		for _, p := range AttachedPhotos(cand, logs) {
			if used[p.ID] {
				continue
			}
			files = append(files, p)
			used[p.ID] = true
		}
		for _, d := range AttachedDocuments(cand, logs) {
			if used[d.ID] {
				continue
			}
			files = append(files, d)
			used[d.ID] = true
		}
		if len(files) == 0 {
			continue
		}
		icon, color := styleFor(cand.Type)
		groups = append(groups, FileGroup{
			ID:    fmt.Sprintf("log-%d", cand.ID),
			Kind:  GroupEvent,
			Label: eventLabel(cand),
			Icon:  icon,
			Color: color,
			Files: files,
		})
	}

	// 3. Chat attachments not claimed above, merged and re-sorted.
	var chatFiles []incident.Log
	for _, l := range logs {
		if used[l.ID] {
			continue
		}
		if (l.Type == incident.LogPhoto && l.Category() == incident.CategoryChatPhoto) ||
			(l.Type == incident.LogDocument && l.Category() == incident.CategoryChatDocument) {
			chatFiles = append(chatFiles, l)
			used[l.ID] = true
		}
	}
	if len(chatFiles) > 0 {
		sort.SliceStable(chatFiles, func(i, j int) bool {
			return chatFiles[i].CreatedAt.Before(chatFiles[j].CreatedAt)
		})
		groups = append(groups, FileGroup{
			ID:    "chat-files",
			Kind:  GroupChatFiles,
			Label: "Chat Files",
			Icon:  "message",
			Color: "green",
			Files: chatFiles,
		})
	}

	// 4. Leftover standalone photos, original order.
	var otherPhotos []incident.Log
	for _, l := range logs {
		if l.Type == incident.LogPhoto && !used[l.ID] {
			otherPhotos = append(otherPhotos, l)
			used[l.ID] = true
		}
	}
	if len(otherPhotos) > 0 {
		groups = append(groups, FileGroup{
			ID:    "other-photos",
			Kind:  GroupOtherPhotos,
			Label: "Other Photos",
			Icon:  "image",
			Color: "blue",
			Files: otherPhotos,
		})
	}

	// 5. Leftover documents, analysis PDFs separated out.
	var analysisPDFs, otherDocs []incident.Log
	for _, l := range logs {
		if l.Type != incident.LogDocument || used[l.ID] {
			continue
		}
		used[l.ID] = true
		if IsAnalysisPDF(l) {
			analysisPDFs = append(analysisPDFs, l)
		} else {
			otherDocs = append(otherDocs, l)
		}
	}
	if len(analysisPDFs) > 0 {
		groups = append(groups, FileGroup{
			ID:    "analysis-pdfs",
			Kind:  GroupAnalysisPDFs,
			Label: "AI Analysis PDFs",
			Icon:  "file",
			Color: "purple",
			Files: analysisPDFs,
		})
	}
	if len(otherDocs) > 0 {
		groups = append(groups, FileGroup{
			ID:    "documents",
			Kind:  GroupDocuments,
			Label: "Documents",
			Icon:  "file",
			Color: "slate",
			Files: otherDocs,
		})
	}

	return groups
}
