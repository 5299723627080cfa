package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/provider"
	"github.com/fsakai/autopost/internal/repository"
)

// Failure message recorded when the owning user has no usable account
// link. Matches the message surfaced to users in listings.
const errNoAccountLink = "Instagram連携が設定されていません"

// Decision is the user's verdict at the confirm gate.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Outcome is the per-post result of a dispatch run.
type Outcome struct {
	PostID          string           `json:"postId"`
	UserID          string           `json:"userId"`
	Status          model.PostStatus `json:"status"`
	InstagramPostID string           `json:"instagramPostId,omitempty"`
	Error           string           `json:"error,omitempty"`
	Skipped         bool             `json:"skipped,omitempty"` // lost the transition race to a concurrent run
}

// Dispatcher drives GENERATED posts to a terminal status.
//
// DispatchDue processes every post due in the lookahead window; Confirm
// handles the manual approve/reject gate for a single post. Both paths
// end in the same store transition, which is a compare-and-set on the
// current status: of two overlapping runs, exactly one moves a given
// post out of GENERATED.
//
// The dispatcher additionally keeps an in-process in-flight set so that
// overlapping invocations sharing this instance never issue a duplicate
// external publish call for the same post — the store CAS alone would
// only catch the race after both had published.
type Dispatcher struct {
	posts     repository.PostRepository
	accounts  repository.AccountRepository
	publisher provider.PublishProvider
	lookahead time.Duration
	timeout   time.Duration // per publish call
	workers   int
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewDispatcher creates a Dispatcher. Zero values default the lookahead
// to 30 minutes, the per-publish timeout to 60 seconds, and the worker
// count to 4.
func NewDispatcher(posts repository.PostRepository, accounts repository.AccountRepository,
	publisher provider.PublishProvider, lookahead, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if lookahead <= 0 {
		lookahead = 30 * time.Minute
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Dispatcher{
		posts:     posts,
		accounts:  accounts,
		publisher: publisher,
		lookahead: lookahead,
		timeout:   timeout,
		workers:   4,
		logger:    logger,
		inFlight:  make(map[string]bool),
	}
}

// DispatchDue publishes every GENERATED post whose target time falls in
// [now, now+lookahead]. Posts are processed independently on a bounded
// set of workers; one post's failure never blocks the rest. The batch is
// not atomic: an interrupted run leaves untouched posts GENERATED for the
// next invocation to pick up.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) ([]Outcome, error) {
	due, err := d.posts.ListDue(ctx, now, now.Add(d.lookahead))
	if err != nil {
		return nil, err
	}

	d.logger.Info("dispatch run", slog.Int("due", len(due)))

	outcomes := make([]Outcome, len(due))
	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup

	for i, post := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, post model.GeneratedPost) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = d.publishOne(ctx, &post)
		}(i, post)
	}
	wg.Wait()

	return outcomes, nil
}

// Confirm applies the user's approve/reject decision to a single post.
// Only legal while the post is GENERATED; anything else is an invalid
// transition. Approving runs the same publish-and-transition logic as the
// automatic path.
func (d *Dispatcher) Confirm(ctx context.Context, userID, postID string, decision Decision) (*model.GeneratedPost, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, apperror.ValidationFailed("action", "action must be approve or reject")
	}

	post, err := d.posts.GetByUser(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != model.StatusGenerated {
		return nil, apperror.InvalidTransition(string(post.Status), "confirmed")
	}

	if decision == DecisionReject {
		err := d.posts.Transition(ctx, post.ID, model.StatusGenerated, model.StatusRejected, repository.TransitionExtra{})
		if err != nil {
			return nil, err
		}
		d.logger.Info("post rejected", slog.String("id", post.ID))
		return d.posts.GetByUser(ctx, userID, postID)
	}

	outcome := d.publishOne(ctx, post)
	if outcome.Skipped {
		return nil, apperror.InvalidTransition(string(model.StatusGenerated), string(outcome.Status))
	}

	return d.posts.GetByUser(ctx, userID, postID)
}

// publishOne drives one post to POSTED or FAILED. Every branch records
// its result on the post; failure of a single post is isolated here and
// reported only through the outcome.
func (d *Dispatcher) publishOne(ctx context.Context, post *model.GeneratedPost) Outcome {
	outcome := Outcome{PostID: post.ID, UserID: post.UserID}

	if !d.claim(post.ID) {
		outcome.Skipped = true
		outcome.Status = post.Status
		outcome.Error = "post is already being processed"
		return outcome
	}
	defer d.release(post.ID)

	account, err := d.accounts.Get(ctx, post.UserID)
	if err != nil || !account.IsActive {
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			// A store failure is not a verdict on the link; leave the
			// post GENERATED for the next run.
			outcome.Status = post.Status
			outcome.Error = err.Error()
			return outcome
		}
		return d.fail(ctx, post, errNoAccountLink, &outcome)
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	externalID, err := d.publisher.Publish(pubCtx, account, post.Image.URL, post.Caption)
	if err != nil {
		d.logger.Warn("publish failed",
			slog.String("id", post.ID),
			slog.String("error", err.Error()),
		)
		return d.fail(ctx, post, err.Error(), &outcome)
	}

	now := time.Now()
	err = d.posts.Transition(ctx, post.ID, model.StatusGenerated, model.StatusPosted, repository.TransitionExtra{
		InstagramPostID: externalID,
		PostedAt:        &now,
	})
	if err != nil {
		return d.raceLost(post, err, &outcome)
	}

	d.logger.Info("post published",
		slog.String("id", post.ID),
		slog.String("instagramPostId", externalID),
	)
	outcome.Status = model.StatusPosted
	outcome.InstagramPostID = externalID
	return outcome
}

func (d *Dispatcher) fail(ctx context.Context, post *model.GeneratedPost, reason string, outcome *Outcome) Outcome {
	err := d.posts.Transition(ctx, post.ID, model.StatusGenerated, model.StatusFailed, repository.TransitionExtra{
		ErrorMessage: reason,
	})
	if err != nil {
		return d.raceLost(post, err, outcome)
	}
	outcome.Status = model.StatusFailed
	outcome.Error = reason
	return *outcome
}

// raceLost handles a transition rejected by the store — another run got
// there first. The post's terminal state stands; this run only reports
// that it was beaten.
func (d *Dispatcher) raceLost(post *model.GeneratedPost, err error, outcome *Outcome) Outcome {
	d.logger.Warn("transition lost to concurrent run",
		slog.String("id", post.ID),
		slog.String("error", err.Error()),
	)
	outcome.Skipped = true
	outcome.Error = err.Error()
	return *outcome
}

func (d *Dispatcher) claim(postID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[postID] {
		return false
	}
	d.inFlight[postID] = true
	return true
}

func (d *Dispatcher) release(postID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, postID)
}
