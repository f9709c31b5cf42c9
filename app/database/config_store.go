package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const lastFetchKey = "last_feed_fetch"

var _ ConfigRepository = (*ConfigStore)(nil)

// ConfigStore keeps small JSON documents in global_config.
type ConfigStore struct {
	db *DB
}

func NewConfigStore(db *DB) *ConfigStore {
	return &ConfigStore{db: db}
}

type timestampValue struct {
	Timestamp string `json:"timestamp"`
}

// GetLastFetch returns the ingestion watermark, or nil before the first run.
func (s *ConfigStore) GetLastFetch(ctx context.Context) (*time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM global_config WHERE key = ?`, lastFetchKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last fetch time: %w", err)
	}

	var value timestampValue
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode last fetch time: %w", err)
	}

	t, err := parseTime(value.Timestamp)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ConfigStore) SetLastFetch(ctx context.Context, t time.Time) error {
	value, err := json.Marshal(timestampValue{Timestamp: formatTime(t)})
	if err != nil {
		return fmt.Errorf("failed to encode last fetch time: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO global_config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, lastFetchKey, string(value), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set last fetch time: %w", err)
	}
	return nil
}
