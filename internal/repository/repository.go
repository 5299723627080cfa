// Package repository declares the persistence interfaces consumed by the
// service layer. Services receive these interfaces, never the concrete
// sqlite types, so tests can substitute in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/fsakai/autopost/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// SettingsRepository stores one Settings row per user, replaced wholesale
// on Put.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*model.Settings, error)
	Put(ctx context.Context, settings *model.Settings) error
	// ListAll returns the settings of every user that has saved any.
	// The schedule matcher scans these each tick.
	ListAll(ctx context.Context) ([]model.Settings, error)
}

// AccountRepository stores the per-user publishing account link.
type AccountRepository interface {
	Get(ctx context.Context, userID string) (*model.InstagramAccount, error)
	Upsert(ctx context.Context, account *model.InstagramAccount) error
}

// PostUpdate carries the editable content fields of a post. Nil means
// "leave unchanged". Editing never touches the status column.
type PostUpdate struct {
	Info     *string
	Caption  *string
	ImageURL *string
	ImageAlt *string
}

// TransitionExtra carries the terminal-state bookkeeping recorded together
// with a status transition.
type TransitionExtra struct {
	InstagramPostID string
	ErrorMessage    string
	PostedAt        *time.Time
}

// PostRepository owns the GeneratedPost entity.
//
// Transition must be atomic with respect to the post's current status: the
// implementation performs a compare-and-set so that concurrent dispatchers
// racing on the same GENERATED post produce exactly one terminal
// transition. The loser receives apperror.ErrInvalidTransition.
type PostRepository interface {
	Create(ctx context.Context, post *model.GeneratedPost) error
	GetByID(ctx context.Context, id string) (*model.GeneratedPost, error)
	GetByUser(ctx context.Context, userID, id string) (*model.GeneratedPost, error)
	ListRecent(ctx context.Context, userID string, opts ListOptions) ([]model.GeneratedPost, error)
	// ListDue returns GENERATED posts whose targetTime lies in [from, to].
	ListDue(ctx context.Context, from, to time.Time) ([]model.GeneratedPost, error)
	UpdateFields(ctx context.Context, userID, id string, update PostUpdate) (*model.GeneratedPost, error)
	Transition(ctx context.Context, id string, from, to model.PostStatus, extra TransitionExtra) error
}
