package evidence

import (
	"fmt"

	"github.com/calegrette/leaseguard/internal/incident"
)

type TimelineItemKind string

const (
	ItemSingle    TimelineItemKind = "single"
	ItemChatGroup TimelineItemKind = "chat_group"
)

// TimelineItem is one display row of the incident timeline. A single item
// wraps one log; a chat_group item aggregates a consecutive run of chat turns
// (user and assistant alike) into one conversation block.
type TimelineItem struct {
	ID   string           `json:"id"`
	Kind TimelineItemKind `json:"kind"`
	Log  *incident.Log    `json:"log,omitempty"`
	Logs []incident.Log   `json:"logs,omitempty"`
}

// BuildTimeline collapses the incident's log list into display items.
//
// The input must already be sorted ascending by CreatedAt (the repo's
// ListLogsByIncident ordering); this function performs no sorting. Photos
// that carry a metadata category or a parent reference are rendered only
// inside galleries or as attachments and are skipped here.
func BuildTimeline(logs []incident.Log) []TimelineItem {
	items := make([]TimelineItem, 0, len(logs))
	var run []incident.Log
	groupN := 0

	flush := func() {
		if len(run) == 0 {
			return
		}
		items = append(items, TimelineItem{
			ID:   fmt.Sprintf("chat-group-%d", groupN),
			Kind: ItemChatGroup,
			Logs: run,
		})
		groupN++
		run = nil
	}

	for i := range logs {
		l := logs[i]
		if l.Type == incident.LogPhoto {
			if l.Category() != "" {
				continue
			}
			if _, attached := l.ParentLogID(); attached {
				continue
			}
		}
		if l.Type == incident.LogChat {
			run = append(run, l)
			continue
		}
		flush()
		items = append(items, TimelineItem{
			ID:   fmt.Sprintf("log-%d", l.ID),
			Kind: ItemSingle,
			Log:  &logs[i],
		})
	}
	flush()

	return items
}
