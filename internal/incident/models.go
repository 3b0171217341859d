package incident

import (
	"time"

	"gorm.io/datatypes"
)

type LogType string

const (
	LogCall     LogType = "call"
	LogText     LogType = "text"
	LogEmail    LogType = "email"
	LogService  LogType = "service"
	LogNote     LogType = "note"
	LogPhoto    LogType = "photo"
	LogDocument LogType = "document"
	LogChat     LogType = "chat"
)

// Metadata keys recognized on a log. Anything else in the bag is ignored.
const (
	MetaCategory    = "category"
	MetaParentLogID = "parent_log_id"
)

// Log categories with special meaning. Unrecognized values are tolerated and
// treated as uncategorized, never rejected.
const (
	CategoryIncidentPhoto = "incident_photo"
	CategoryChatPhoto     = "chat_photo"
	CategoryChatDocument  = "chat_document"
	CategoryAnalysisPDF   = "analysis_pdf"
)

type IncidentStatus string

const (
	StatusOpen     IncidentStatus = "open"
	StatusResolved IncidentStatus = "resolved"
	StatusClosed   IncidentStatus = "closed"
)

type Incident struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64         `gorm:"index;not null" json:"-"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      IncidentStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Incident) TableName() string { return "incidents" }

// Log is one atomic evidence/communication/chat entry belonging to an
// incident. Photos and documents may ride on another log of the same incident
// via the parent_log_id metadata key.
type Log struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	IncidentID uint64            `gorm:"index:idx_logs_incident_created,priority:1;not null" json:"incident_id"`
	Type       LogType           `gorm:"type:varchar(16);index;not null" json:"type"`
	Title      string            `gorm:"type:varchar(255)" json:"title"`
	Content    string            `gorm:"type:text" json:"content"`
	FileURL    string            `gorm:"type:varchar(1024)" json:"file_url"`
	IsAI       bool              `gorm:"not null;default:false" json:"is_ai"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `gorm:"index:idx_logs_incident_created,priority:2" json:"created_at"`
}

func (Log) TableName() string { return "incident_logs" }

// Category returns the metadata category tag, or "" when absent. Any string
// passes through unchecked.
func (l Log) Category() string {
	if l.Metadata == nil {
		return ""
	}
	v, ok := l.Metadata[MetaCategory]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ParentLogID returns the id of the log this one is attached to, if any.
// JSON round-trips numbers as float64, so both numeric shapes are accepted.
func (l Log) ParentLogID() (uint64, bool) {
	if l.Metadata == nil {
		return 0, false
	}
	switch v := l.Metadata[MetaParentLogID].(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		if v == 0 {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
