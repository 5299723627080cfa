package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

// Slot is one due posting slot: a user whose schedule names the instant
// the lookahead window lands on.
type Slot struct {
	UserID      string
	ScheduledAt time.Time
}

// Matcher determines which users have a post due.
//
// Matching is exact string equality on the minute-granular "HH:MM" label
// of now + lookahead. There is no tolerance interval, so the invoking
// cadence must fire at least once per minute or slots are silently
// skipped — an operational requirement of the caller, not something the
// matcher compensates for. The matcher itself performs no cross-invocation
// deduplication; the store's status filter and transition guard make
// re-processing safe downstream.
type Matcher struct {
	settings  repository.SettingsRepository
	lookahead time.Duration
	logger    *slog.Logger
}

// NewMatcher creates a Matcher. A zero lookahead defaults to 30 minutes.
func NewMatcher(settings repository.SettingsRepository, lookahead time.Duration, logger *slog.Logger) *Matcher {
	if lookahead <= 0 {
		lookahead = 30 * time.Minute
	}
	return &Matcher{
		settings:  settings,
		lookahead: lookahead,
		logger:    logger,
	}
}

// Lookahead returns the matcher's lookahead window.
func (m *Matcher) Lookahead() time.Duration {
	return m.lookahead
}

// FindDueSlots returns one slot per user whose schedule contains the
// weekday and "HH:MM" of now + lookahead. Seconds are truncated; each
// user emits at most one slot per call.
func (m *Matcher) FindDueSlots(ctx context.Context, now time.Time) ([]Slot, error) {
	target := now.Add(m.lookahead).Truncate(time.Minute)
	targetDay := model.WeekdayOf(target)
	targetTime := target.Format("15:04")

	all, err := m.settings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("matching slots: %w", err)
	}

	m.logger.Debug("checking schedules",
		slog.String("day", string(targetDay)),
		slog.String("time", targetTime),
		slog.Int("users", len(all)),
	)

	var slots []Slot
	seen := make(map[string]bool)
	for _, s := range all {
		if seen[s.UserID] {
			continue
		}
		for _, t := range s.Schedule[targetDay] {
			if t == targetTime {
				slots = append(slots, Slot{UserID: s.UserID, ScheduledAt: target})
				seen[s.UserID] = true
				break
			}
		}
	}

	return slots, nil
}
