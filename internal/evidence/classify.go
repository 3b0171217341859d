// Package evidence derives the two display structures of an incident's log
// list: the chronological timeline and the categorized file galleries. All
// functions are pure; they never mutate their inputs.
package evidence

import (
	"github.com/calegrette/leaseguard/internal/incident"
)

// IsAnalysisPDF reports whether the log is an AI-generated analysis report.
func IsAnalysisPDF(l incident.Log) bool {
	return l.Category() == incident.CategoryAnalysisPDF
}

func canOwnPhotos(t incident.LogType) bool {
	switch t {
	case incident.LogCall, incident.LogText, incident.LogEmail, incident.LogPhoto, incident.LogService:
		return true
	default:
		return false
	}
}

func canOwnDocuments(t incident.LogType) bool {
	switch t {
	case incident.LogCall, incident.LogText, incident.LogEmail, incident.LogService:
		return true
	default:
		return false
	}
}

// AttachedPhotos returns every photo in all whose parent_log_id references l.
// Only call, text, email, photo and service logs can own photos; any other
// parent type yields nil.
func AttachedPhotos(l incident.Log, all []incident.Log) []incident.Log {
	if !canOwnPhotos(l.Type) {
		return nil
	}
	var out []incident.Log
	for _, cand := range all {
		if cand.Type != incident.LogPhoto {
			continue
		}
		if pid, ok := cand.ParentLogID(); ok && pid == l.ID {
			out = append(out, cand)
		}
	}
	return out
}

// AttachedDocuments is the document counterpart of AttachedPhotos. Photo logs
// cannot own documents.
func AttachedDocuments(l incident.Log, all []incident.Log) []incident.Log {
	if !canOwnDocuments(l.Type) {
		return nil
	}
	var out []incident.Log
	for _, cand := range all {
		if cand.Type != incident.LogDocument {
			continue
		}
		if pid, ok := cand.ParentLogID(); ok && pid == l.ID {
			out = append(out, cand)
		}
	}
	return out
}
