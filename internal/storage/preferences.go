package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetPreference returns the stored value for key, or def when unset.
func (s *Store) GetPreference(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM preferences WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", storageErr("get preference "+key, err)
	}
	return value, nil
}

// SetPreference stores value under key, replacing any previous value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO preferences (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return storageErr("set preference "+key, err)
	}
	return nil
}

// GetJSONPreference decodes the value stored under key into dst. It reports
// false when the key is unset.
func (s *Store) GetJSONPreference(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := s.GetPreference(ctx, key, "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("preference %s is not valid JSON: %w", key, err)
	}
	return true, nil
}

// SetJSONPreference encodes value as JSON and stores it under key.
func (s *Store) SetJSONPreference(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal preference %s: %w", key, err)
	}
	return s.SetPreference(ctx, key, string(data))
}
