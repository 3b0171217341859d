// Package redisstore wraps the redis usages of the service: the per-incident
// log-list cache, registration captchas, export locks and export counters.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calegrette/leaseguard/internal/incident"
)

const (
	captchaTTL  = 10 * time.Minute
	logCacheTTL = 5 * time.Minute
	exportTTL   = 2 * time.Minute
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// --- registration captcha ---

func captchaKey(email string) string { return "captcha:" + email }

func (s *Store) SetCaptcha(ctx context.Context, email, code string) error {
	return s.rdb.Set(ctx, captchaKey(email), code, captchaTTL).Err()
}

func (s *Store) GetCaptcha(ctx context.Context, email string) (string, error) {
	return s.rdb.Get(ctx, captchaKey(email)).Result()
}

func (s *Store) DeleteCaptcha(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, captchaKey(email)).Err()
}

// --- incident log cache ---

func logsKey(incidentID uint64) string {
	return fmt.Sprintf("incident:%d:logs", incidentID)
}

// GetIncidentLogs returns the cached log list; the second return reports a hit.
func (s *Store) GetIncidentLogs(ctx context.Context, incidentID uint64) ([]incident.Log, bool, error) {
	raw, err := s.rdb.Get(ctx, logsKey(incidentID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var logs []incident.Log
	if err := json.Unmarshal(raw, &logs); err != nil {
		// stale or corrupt entry; treat as a miss
		_ = s.rdb.Del(ctx, logsKey(incidentID)).Err()
		return nil, false, nil
	}
	return logs, true, nil
}

func (s *Store) SetIncidentLogs(ctx context.Context, incidentID uint64, logs []incident.Log) error {
	raw, err := json.Marshal(logs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, logsKey(incidentID), raw, logCacheTTL).Err()
}

func (s *Store) InvalidateIncidentLogs(ctx context.Context, incidentID uint64) error {
	return s.rdb.Del(ctx, logsKey(incidentID)).Err()
}

// --- PDF export bookkeeping ---

// TrackPDFExport bumps the export counter. Fire-and-forget analytics; the
// caller decides whether a failure matters.
func (s *Store) TrackPDFExport(ctx context.Context) error {
	return s.rdb.Incr(ctx, "pdf_exports_total").Err()
}

func (s *Store) PDFExportCount(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, "pdf_exports_total").Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func exportLockKey(incidentID uint64) string {
	return fmt.Sprintf("incident:%d:export_lock", incidentID)
}

// AcquireExportLock guards against concurrent exports of the same incident.
// Returns false when an export is already running.
func (s *Store) AcquireExportLock(ctx context.Context, incidentID uint64) (bool, error) {
	return s.rdb.SetNX(ctx, exportLockKey(incidentID), 1, exportTTL).Result()
}

func (s *Store) ReleaseExportLock(ctx context.Context, incidentID uint64) error {
	return s.rdb.Del(ctx, exportLockKey(incidentID)).Err()
}
