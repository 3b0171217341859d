package incident

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateIncident(ctx context.Context, inc *Incident) error {
	return r.db.WithContext(ctx).Create(inc).Error
}

func (r *Repo) GetIncident(ctx context.Context, id uint64) (*Incident, error) {
	var inc Incident
	if err := r.db.WithContext(ctx).First(&inc, id).Error; err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *Repo) ListIncidentsByUser(ctx context.Context, userID uint64) ([]Incident, error) {
	var incs []Incident
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&incs).Error; err != nil {
		return nil, err
	}
	return incs, nil
}

func (r *Repo) UpdateIncidentStatus(ctx context.Context, id uint64, status IncidentStatus) error {
	return r.db.WithContext(ctx).Model(&Incident{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repo) CreateLog(ctx context.Context, l *Log) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) GetLog(ctx context.Context, id uint64) (*Log, error) {
	var l Log
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLogsByIncident returns the incident's full log list in ascending
// chronological order. Ties on created_at break by id, which preserves insert
// order; downstream builders rely on this ordering.
func (r *Repo) ListLogsByIncident(ctx context.Context, incidentID uint64) ([]Log, error) {
	var logs []Log
	if err := r.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListChatLogsDesc returns the most recent chat logs (newest -> oldest).
func (r *Repo) ListChatLogsDesc(ctx context.Context, incidentID uint64, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []Log
	if err := r.db.WithContext(ctx).
		Where("incident_id = ? AND type = ?", incidentID, LogChat).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
