package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

// SettingsStore implements repository.SettingsRepository over the shared
// pool.
type SettingsStore struct {
	conn *sql.DB
}

// Settings returns the settings store view of the database.
func (db *DB) Settings() *SettingsStore {
	return &SettingsStore{conn: db.conn}
}

var _ repository.SettingsRepository = (*SettingsStore)(nil)

// Get returns the settings for userID, or ErrNotFound if the user has
// never saved any.
func (s *SettingsStore) Get(ctx context.Context, userID string) (*model.Settings, error) {
	var (
		out          model.Settings
		keywordsJSON string
		scheduleJSON string
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT user_id, keywords, style_instructions, caption_instructions, schedule, updated_at
		 FROM settings
		 WHERE user_id = ?`,
		userID,
	).Scan(
		&out.UserID,
		&keywordsJSON,
		&out.StyleInstructions,
		&out.CaptionInstructions,
		&scheduleJSON,
		&out.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("settings", userID)
		}
		return nil, fmt.Errorf("sqlite: getting settings: %w", err)
	}

	if err := decodeSettings(&out, keywordsJSON, scheduleJSON); err != nil {
		return nil, err
	}

	return &out, nil
}

// Put replaces the user's settings wholesale (INSERT OR REPLACE keyed on
// user_id — there is no partial merge).
func (s *SettingsStore) Put(ctx context.Context, settings *model.Settings) error {
	keywordsJSON, err := json.Marshal(settings.Keywords)
	if err != nil {
		return fmt.Errorf("sqlite: encoding keywords: %w", err)
	}
	scheduleJSON, err := json.Marshal(settings.Schedule)
	if err != nil {
		return fmt.Errorf("sqlite: encoding schedule: %w", err)
	}

	settings.UpdatedAt = time.Now()

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO settings (user_id, keywords, style_instructions, caption_instructions, schedule, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			keywords = excluded.keywords,
			style_instructions = excluded.style_instructions,
			caption_instructions = excluded.caption_instructions,
			schedule = excluded.schedule,
			updated_at = excluded.updated_at`,
		settings.UserID,
		string(keywordsJSON),
		settings.StyleInstructions,
		settings.CaptionInstructions,
		string(scheduleJSON),
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving settings: %w", err)
	}

	return nil
}

// ListAll returns every saved settings row. The matcher scans these once
// per tick; user counts for a single-server dashboard keep this cheap.
func (s *SettingsStore) ListAll(ctx context.Context) ([]model.Settings, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT user_id, keywords, style_instructions, caption_instructions, schedule, updated_at
		 FROM settings`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing settings: %w", err)
	}
	defer rows.Close()

	var all []model.Settings
	for rows.Next() {
		var (
			row          model.Settings
			keywordsJSON string
			scheduleJSON string
		)
		if err := rows.Scan(
			&row.UserID, &keywordsJSON, &row.StyleInstructions,
			&row.CaptionInstructions, &scheduleJSON, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning settings row: %w", err)
		}
		if err := decodeSettings(&row, keywordsJSON, scheduleJSON); err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating settings: %w", err)
	}

	return all, nil
}

func decodeSettings(s *model.Settings, keywordsJSON, scheduleJSON string) error {
	if err := json.Unmarshal([]byte(keywordsJSON), &s.Keywords); err != nil {
		return fmt.Errorf("sqlite: decoding keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &s.Schedule); err != nil {
		return fmt.Errorf("sqlite: decoding schedule: %w", err)
	}
	return nil
}
