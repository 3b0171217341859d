// Package analysis produces structured AI case analyses for an incident and
// tracks the async jobs that export them as PDF evidence.
package analysis

import "time"

type Recommendation string

const (
	RecommendationStrong   Recommendation = "strong"
	RecommendationModerate Recommendation = "moderate"
	RecommendationWeak     Recommendation = "weak"
)

type Violation struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Result is the fixed-shape outcome of one AI case analysis.
type Result struct {
	Summary          string         `json:"summary"`
	EvidenceScore    int            `json:"evidence_score"` // 0-10
	Recommendation   Recommendation `json:"recommendation"`
	Violations       []Violation    `json:"violations"`
	TimelineAnalysis string         `json:"timeline_analysis"`
	NextSteps        []string       `json:"next_steps"`
	Strengths        []string       `json:"strengths,omitempty"`
	Weaknesses       []string       `json:"weaknesses,omitempty"`
}

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is one queued analysis-export run for an incident.
type Job struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	UserID     uint64 `gorm:"index;not null;index:uniq_analysis_user_idempo,unique"`
	IncidentID uint64 `gorm:"index;not null"`

	IdempotencyKey *string `gorm:"type:varchar(128);index:uniq_analysis_user_idempo,unique" json:"idempotency_key"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded: the document log row holding the uploaded PDF.
	ResultLogID *uint64 `gorm:"index"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Job) TableName() string { return "analysis_jobs" }
