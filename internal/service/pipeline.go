package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/notify"
	"github.com/fsakai/autopost/internal/repository"
)

// SlotResult is the per-slot outcome of a generation run.
type SlotResult struct {
	UserID string `json:"userId"`
	PostID string `json:"postId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// GenerateReport summarizes one RunMatchAndDispatch invocation.
type GenerateReport struct {
	Generated int          `json:"generated"`
	Results   []SlotResult `json:"results"`
}

// Pipeline exposes the two trigger operations invoked by the external
// scheduler (in-process cron or the guarded HTTP endpoints):
//
//	RunMatchAndDispatch — match due slots, assemble content, persist,
//	                      notify (the pre-generation leg)
//	RunDispatch         — publish due GENERATED posts (the publish leg)
//
// The operations are deliberately independent so cron can drive them on
// separate cadences, and each invocation is a finite computation over
// current persisted state — the pipeline holds no timers of its own.
type Pipeline struct {
	matcher    *Matcher
	assembler  *Assembler
	dispatcher *Dispatcher
	posts      *PostService
	settings   repository.SettingsRepository
	users      repository.UserRepository
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewPipeline wires the trigger operations.
func NewPipeline(matcher *Matcher, assembler *Assembler, dispatcher *Dispatcher,
	posts *PostService, settings repository.SettingsRepository,
	users repository.UserRepository, notifier notify.Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		matcher:    matcher,
		assembler:  assembler,
		dispatcher: dispatcher,
		posts:      posts,
		settings:   settings,
		users:      users,
		notifier:   notifier,
		logger:     logger,
	}
}

// RunMatchAndDispatch generates a post for every user with a slot due in
// the lookahead window. Slots are processed independently: a failure for
// one user is recorded in the report and the run continues.
func (p *Pipeline) RunMatchAndDispatch(ctx context.Context, now time.Time) (*GenerateReport, error) {
	slots, err := p.matcher.FindDueSlots(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &GenerateReport{Results: make([]SlotResult, 0, len(slots))}
	for _, slot := range slots {
		result := SlotResult{UserID: slot.UserID}

		post, err := p.generateFor(ctx, slot.UserID, slot.ScheduledAt)
		if err != nil {
			p.logger.Error("slot generation failed",
				slog.String("userId", slot.UserID),
				slog.String("error", err.Error()),
			)
			result.Error = err.Error()
		} else {
			result.PostID = post.ID
			report.Generated++
		}

		report.Results = append(report.Results, result)
	}

	p.logger.Info("generation run complete",
		slog.Int("slots", len(slots)),
		slog.Int("generated", report.Generated),
	)
	return report, nil
}

// RunDispatch publishes every post due in the dispatch window.
func (p *Pipeline) RunDispatch(ctx context.Context, now time.Time) ([]Outcome, error) {
	return p.dispatcher.DispatchDue(ctx, now)
}

// GenerateNow runs the assembler once for a single user outside the
// schedule, aimed at targetTime. Backs the dashboard's manual generate
// action; the same assembler serves both this and the scheduled path.
func (p *Pipeline) GenerateNow(ctx context.Context, userID string, targetTime time.Time) (*model.GeneratedPost, error) {
	return p.generateFor(ctx, userID, targetTime)
}

// generateFor assembles and persists one post for one user, then fires
// the notification. Requires saved settings with at least one keyword.
func (p *Pipeline) generateFor(ctx context.Context, userID string, targetTime time.Time) (*model.GeneratedPost, error) {
	settings, err := p.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(settings.Keywords) == 0 {
		return nil, apperror.ValidationFailed("keywords", "キーワードが設定されていません")
	}

	artifact := p.assembler.Assemble(ctx, settings.Keywords, settings.StyleInstructions, settings.CaptionInstructions)

	post, err := p.posts.CreateFromArtifact(ctx, userID, artifact, targetTime)
	if err != nil {
		return nil, err
	}

	// Notification is fire-and-forget: a failed notice never fails the
	// generation that triggered it.
	if user, err := p.users.GetByID(ctx, userID); err != nil {
		p.logger.Warn("notify skipped, user lookup failed",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
	} else if err := p.notifier.Notify(ctx, user, post); err != nil {
		p.logger.Warn("notification failed",
			slog.String("userId", userID),
			slog.String("postId", post.ID),
			slog.String("error", err.Error()),
		)
	}

	return post, nil
}
