package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

const MaxKeywords = 50

// timePattern matches zero-padded 24h "HH:MM".
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// SettingsService validates and persists user settings. All schedule
// validation happens here, at the boundary — the matcher trusts what it
// reads back from the store.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the user's settings. A user who never saved any gets the
// empty defaults rather than a not-found error.
func (s *SettingsService) Get(ctx context.Context, userID string) (*model.Settings, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &model.Settings{
				UserID:   userID,
				Keywords: []string{},
				Schedule: model.Schedule{},
			}, nil
		}
		return nil, err
	}
	return settings, nil
}

// Save validates, normalizes, and stores the settings as a full
// replacement of whatever was saved before.
//
// Normalization: keywords are trimmed, de-duplicated, and capped at
// MaxKeywords; schedule keys must be the seven weekday labels; times must
// be zero-padded "HH:MM" and come back de-duplicated and sorted ascending.
func (s *SettingsService) Save(ctx context.Context, userID string, settings *model.Settings) (*model.Settings, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	keywords, err := normalizeKeywords(settings.Keywords)
	if err != nil {
		return nil, err
	}

	schedule, err := normalizeSchedule(settings.Schedule)
	if err != nil {
		return nil, err
	}

	normalized := &model.Settings{
		UserID:              userID,
		Keywords:            keywords,
		StyleInstructions:   strings.TrimSpace(settings.StyleInstructions),
		CaptionInstructions: strings.TrimSpace(settings.CaptionInstructions),
		Schedule:            schedule,
	}

	if err := s.repo.Put(ctx, normalized); err != nil {
		s.logger.Error("failed to save settings",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("saving settings: %w", err)
	}

	s.logger.Info("settings saved",
		slog.String("userId", userID),
		slog.Int("keywords", len(keywords)),
		slog.Int("scheduleDays", len(schedule)),
	)

	return normalized, nil
}

func normalizeKeywords(raw []string) ([]string, error) {
	keywords := make([]string, 0, len(raw))
	seen := make(map[string]bool)
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
	}
	if len(keywords) > MaxKeywords {
		return nil, apperror.ValidationFailed("keywords",
			fmt.Sprintf("at most %d keywords are allowed", MaxKeywords))
	}
	return keywords, nil
}

func normalizeSchedule(raw model.Schedule) (model.Schedule, error) {
	schedule := make(model.Schedule, len(raw))
	for day, times := range raw {
		if !day.Valid() {
			return nil, apperror.ValidationFailed("schedule",
				fmt.Sprintf("unknown weekday %q", string(day)))
		}

		seen := make(map[string]bool)
		cleaned := make([]string, 0, len(times))
		for _, t := range times {
			t = strings.TrimSpace(t)
			if !timePattern.MatchString(t) {
				return nil, apperror.ValidationFailed("schedule",
					fmt.Sprintf("invalid time %q, expected HH:MM", t))
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			cleaned = append(cleaned, t)
		}
		if len(cleaned) == 0 {
			continue
		}
		sort.Strings(cleaned) // lexicographic == chronological for HH:MM
		schedule[day] = cleaned
	}
	return schedule, nil
}
