package incident

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
)

// LogCache caches a per-incident materialized log list. Implemented by
// store/redisstore; a nil cache disables caching entirely.
type LogCache interface {
	GetIncidentLogs(ctx context.Context, incidentID uint64) ([]Log, bool, error)
	SetIncidentLogs(ctx context.Context, incidentID uint64, logs []Log) error
	InvalidateIncidentLogs(ctx context.Context, incidentID uint64) error
}

type Service struct {
	repo  *Repo
	cache LogCache
}

func NewService(repo *Repo, cache LogCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Create(ctx context.Context, userID uint64, title, description string) (*Incident, error) {
	inc := &Incident{
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      StatusOpen,
	}
	if err := s.repo.CreateIncident(ctx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

// GetOwned fetches an incident and verifies ownership. A foreign incident is
// reported as not found to hide its existence.
func (s *Service) GetOwned(ctx context.Context, userID, incidentID uint64) (*Incident, error) {
	inc, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if inc.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return inc, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uint64) ([]Incident, error) {
	return s.repo.ListIncidentsByUser(ctx, userID)
}

func (s *Service) UpdateStatus(ctx context.Context, userID, incidentID uint64, status IncidentStatus) error {
	if _, err := s.GetOwned(ctx, userID, incidentID); err != nil {
		return err
	}
	switch status {
	case StatusOpen, StatusResolved, StatusClosed:
	default:
		return errors.New("invalid status")
	}
	return s.repo.UpdateIncidentStatus(ctx, incidentID, status)
}

// AddLog persists a new log and invalidates the incident's cached log list.
func (s *Service) AddLog(ctx context.Context, l *Log) error {
	if err := s.repo.CreateLog(ctx, l); err != nil {
		return err
	}
	s.invalidate(ctx, l.IncidentID)
	return nil
}

// Logs returns the incident's full log list in ascending chronological order,
// read through the cache when one is configured. Cache errors degrade to a
// direct DB read.
func (s *Service) Logs(ctx context.Context, incidentID uint64) ([]Log, error) {
	if s.cache != nil {
		logs, hit, err := s.cache.GetIncidentLogs(ctx, incidentID)
		if err != nil {
			log.Printf("incident log cache read failed incident=%d err=%v", incidentID, err)
		} else if hit {
			return logs, nil
		}
	}

	logs, err := s.repo.ListLogsByIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetIncidentLogs(ctx, incidentID, logs); err != nil {
			log.Printf("incident log cache write failed incident=%d err=%v", incidentID, err)
		}
	}
	return logs, nil
}

// Invalidate drops the cached log list so the next read refetches. Exposed for
// collaborators that create logs outside this service.
func (s *Service) Invalidate(ctx context.Context, incidentID uint64) {
	s.invalidate(ctx, incidentID)
}

func (s *Service) invalidate(ctx context.Context, incidentID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateIncidentLogs(ctx, incidentID); err != nil {
		log.Printf("incident log cache invalidate failed incident=%d err=%v", incidentID, err)
	}
}

func (s *Service) RecentChatLogsDesc(ctx context.Context, incidentID uint64, limit int) ([]Log, error) {
	return s.repo.ListChatLogsDesc(ctx, incidentID, limit)
}
