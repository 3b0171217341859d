package evidence

import (
	"reflect"
	"testing"

	"github.com/calegrette/leaseguard/internal/incident"
)

func categorized(id uint64, t incident.LogType, minuteOffset int, category string) incident.Log {
	return withMeta(logAt(id, t, minuteOffset), map[string]interface{}{incident.MetaCategory: category})
}

func parented(id uint64, t incident.LogType, minuteOffset int, parentID uint64) incident.Log {
	return withMeta(logAt(id, t, minuteOffset), map[string]interface{}{incident.MetaParentLogID: float64(parentID)})
}

// fileIDs flattens the groups into the set of claimed file ids, failing on any
// file claimed twice.
func fileIDs(t *testing.T, groups []FileGroup) map[uint64]bool {
	t.Helper()
	ids := make(map[uint64]bool)
	for _, g := range groups {
		for _, f := range g.Files {
			if ids[f.ID] {
				t.Fatalf("file %d claimed by more than one group", f.ID)
			}
			ids[f.ID] = true
		}
	}
	return ids
}

func TestBuildFileGroups_PartitionsEveryFile(t *testing.T) {
	inc := &incident.Incident{ID: 1, Title: "Broken heater"}

	call := logAt(10, incident.LogCall, 5)
	call.Title = "Called landlord"

	logs := []incident.Log{
		categorized(1, incident.LogPhoto, 0, incident.CategoryIncidentPhoto),
		call,
		parented(11, incident.LogPhoto, 6, 10),
		parented(12, incident.LogDocument, 7, 10),
		categorized(20, incident.LogPhoto, 8, incident.CategoryChatPhoto),
		categorized(21, incident.LogDocument, 9, incident.CategoryChatDocument),
		logAt(30, incident.LogPhoto, 10), // stray photo
		categorized(40, incident.LogDocument, 11, incident.CategoryAnalysisPDF),
		logAt(41, incident.LogDocument, 12), // stray document
		logAt(50, incident.LogNote, 13),     // no files, must not produce a group
	}

	groups := BuildFileGroups(logs, inc)

	wantKinds := []FileGroupKind{
		GroupIncidentPhotos, GroupEvent, GroupChatFiles,
		GroupOtherPhotos, GroupAnalysisPDFs, GroupDocuments,
	}
	if len(groups) != len(wantKinds) {
		t.Fatalf("expected %d groups, got %d: %+v", len(wantKinds), len(groups), groups)
	}
	for i, k := range wantKinds {
		if groups[i].Kind != k {
			t.Fatalf("group %d: kind=%q want %q", i, groups[i].Kind, k)
		}
	}

	// every photo and document is claimed exactly once
	ids := fileIDs(t, groups)
	for _, want := range []uint64{1, 11, 12, 20, 21, 30, 40, 41} {
		if !ids[want] {
			t.Fatalf("file %d not claimed by any group", want)
		}
	}
	if len(ids) != 8 {
		t.Fatalf("expected 8 claimed files, got %d", len(ids))
	}

	if groups[0].Label != "Broken heater" {
		t.Fatalf("incident group label=%q", groups[0].Label)
	}
	if groups[1].ID != "log-10" || groups[1].Label != "Call: Called landlord" {
		t.Fatalf("event group id=%q label=%q", groups[1].ID, groups[1].Label)
	}
	if groups[4].Color != "purple" {
		t.Fatalf("analysis group color=%q", groups[4].Color)
	}
}

func TestBuildFileGroups_IncidentCoverWinsOverEventBundle(t *testing.T) {
	inc := &incident.Incident{ID: 1, Title: "Mold"}

	// a cover photo that is also titled and carries a file, so it would
	// otherwise qualify as its own event bundle
	cover := categorized(1, incident.LogPhoto, 0, incident.CategoryIncidentPhoto)
	cover.Title = "Front wall"
	cover.FileURL = "https://example.com/a.jpg"

	groups := BuildFileGroups([]incident.Log{cover}, inc)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Kind != GroupIncidentPhotos {
		t.Fatalf("kind=%q", groups[0].Kind)
	}
}

func TestBuildFileGroups_NoIncidentContext(t *testing.T) {
	logs := []incident.Log{
		categorized(1, incident.LogPhoto, 0, incident.CategoryIncidentPhoto),
	}

	groups := BuildFileGroups(logs, nil)

	// without incident context the cover group cannot form; the photo falls
	// through to Other Photos
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Kind != GroupOtherPhotos {
		t.Fatalf("kind=%q", groups[0].Kind)
	}
}

func TestBuildFileGroups_TitledPhotoFormsOwnBundle(t *testing.T) {
	photo := logAt(5, incident.LogPhoto, 0)
	photo.Title = "Ceiling stain"
	photo.FileURL = "https://example.com/stain.jpg"

	extra := parented(6, incident.LogPhoto, 1, 5)

	groups := BuildFileGroups([]incident.Log{photo, extra}, nil)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.ID != "log-5" || g.Kind != GroupEvent {
		t.Fatalf("id=%q kind=%q", g.ID, g.Kind)
	}
	if len(g.Files) != 2 || g.Files[0].ID != 5 || g.Files[1].ID != 6 {
		t.Fatalf("files=%+v", g.Files)
	}
	if g.Label != "Photo: Ceiling stain" {
		t.Fatalf("label=%q", g.Label)
	}
}

func TestBuildFileGroups_UntitledContentLabelTruncated(t *testing.T) {
	call := logAt(7, incident.LogCall, 0)
	call.Content = "A very long description of the phone call that keeps going"

	groups := BuildFileGroups([]incident.Log{call, parented(8, incident.LogPhoto, 1, 7)}, nil)

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	want := "Call: A very long description of the…"
	if groups[0].Label != want {
		t.Fatalf("label=%q want %q", groups[0].Label, want)
	}
}

func TestCallWithPhotoAndChatConversation(t *testing.T) {
	call := logAt(1, incident.LogCall, 0)
	call.Content = "Called PM"

	logs := []incident.Log{
		call,
		parented(2, incident.LogPhoto, 1, 1),
		logAt(3, incident.LogChat, 10),
		func() incident.Log { l := logAt(4, incident.LogChat, 11); l.IsAI = true; return l }(),
	}

	items := BuildTimeline(logs)
	if len(items) != 2 {
		t.Fatalf("timeline items=%d: %+v", len(items), items)
	}
	if items[0].ID != "log-1" || items[1].Kind != ItemChatGroup || len(items[1].Logs) != 2 {
		t.Fatalf("timeline=%+v", items)
	}

	groups := BuildFileGroups(logs, nil)
	if len(groups) != 1 {
		t.Fatalf("groups=%d: %+v", len(groups), groups)
	}
	if groups[0].ID != "log-1" || len(groups[0].Files) != 1 || groups[0].Files[0].ID != 2 {
		t.Fatalf("group=%+v", groups[0])
	}
}

func TestAnalysisPDFSeparatedFromDocuments(t *testing.T) {
	groups := BuildFileGroups([]incident.Log{
		categorized(1, incident.LogDocument, 0, incident.CategoryAnalysisPDF),
	}, nil)

	if len(groups) != 1 || groups[0].Kind != GroupAnalysisPDFs {
		t.Fatalf("groups=%+v", groups)
	}
}

func TestBuildFileGroups_ParentClaimBeatsChatFiles(t *testing.T) {
	call := logAt(1, incident.LogCall, 0)
	call.Title = "Called landlord"

	// a chat photo that was later attached to the call
	attached := withMeta(logAt(2, incident.LogPhoto, 1), map[string]interface{}{
		incident.MetaCategory:    incident.CategoryChatPhoto,
		incident.MetaParentLogID: float64(1),
	})

	groups := BuildFileGroups([]incident.Log{call, attached}, nil)

	if len(groups) != 1 || groups[0].Kind != GroupEvent {
		t.Fatalf("groups=%+v", groups)
	}
	if len(groups[0].Files) != 1 || groups[0].Files[0].ID != 2 {
		t.Fatalf("files=%+v", groups[0].Files)
	}
}

func TestBuildFileGroups_Idempotent(t *testing.T) {
	logs := []incident.Log{
		categorized(1, incident.LogPhoto, 0, incident.CategoryIncidentPhoto),
		logAt(2, incident.LogCall, 1),
		parented(3, incident.LogPhoto, 2, 2),
		logAt(4, incident.LogPhoto, 3),
	}
	inc := &incident.Incident{ID: 1, Title: "Mold"}

	a := BuildFileGroups(logs, inc)
	b := BuildFileGroups(logs, inc)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two builds over the same input differ:\n%v\n%v", a, b)
	}
}

func TestBuildFileGroups_EventOrderIsChronological(t *testing.T) {
	// second event created earlier but listed later
	email := logAt(2, incident.LogEmail, 10)
	call := logAt(1, incident.LogCall, 5)

	logs := []incident.Log{
		email, call,
		parented(3, incident.LogPhoto, 11, 2),
		parented(4, incident.LogPhoto, 12, 1),
	}

	groups := BuildFileGroups(logs, nil)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ID != "log-1" || groups[1].ID != "log-2" {
		t.Fatalf("group order: %q, %q", groups[0].ID, groups[1].ID)
	}
}
