package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

const (
	DefaultPostListLimit = 20
	MaxPostListLimit     = 100
)

// PostService owns the generated-post lifecycle: creation from an
// artifact, lookup, listings, and content edits. Status transitions go
// through the Dispatcher, which shares the same repository.
type PostService struct {
	repo   repository.PostRepository
	logger *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(repo repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		repo:   repo,
		logger: logger,
	}
}

// CreateFromArtifact persists an assembled artifact as a GENERATED post
// aimed at targetTime. TargetTime is immutable from here on.
func (s *PostService) CreateFromArtifact(ctx context.Context, userID string, artifact Artifact, targetTime time.Time) (*model.GeneratedPost, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if targetTime.IsZero() {
		return nil, apperror.ValidationFailed("targetTime", "target time is required")
	}

	post := &model.GeneratedPost{
		UserID:   userID,
		Keywords: artifact.Keywords,
		Info:     artifact.Info,
		Image: model.PostImage{
			URL:          artifact.Image.URL,
			Alt:          artifact.Image.Alt,
			Source:       artifact.Image.Source,
			Photographer: artifact.Image.Photographer,
		},
		Caption:    artifact.Caption,
		TargetTime: targetTime,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("userId", userID),
		slog.Time("targetTime", targetTime),
	)

	return post, nil
}

// Get retrieves a post owned by userID.
func (s *PostService) Get(ctx context.Context, userID, id string) (*model.GeneratedPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.repo.GetByUser(ctx, userID, id)
}

// ListRecent returns the user's posts, newest first, clamped to at most
// MaxPostListLimit entries.
func (s *PostService) ListRecent(ctx context.Context, userID string, limit int) ([]model.GeneratedPost, error) {
	if limit <= 0 {
		limit = DefaultPostListLimit
	}
	if limit > MaxPostListLimit {
		limit = MaxPostListLimit
	}

	posts, err := s.repo.ListRecent(ctx, userID, repository.ListOptions{Limit: limit})
	if err != nil {
		s.logger.Error("failed to list posts",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return posts, nil
}

// UpdateFields edits a post's content. Allowed at any status — including
// POSTED, for after-the-fact corrections to the stored record — and never
// changes the status itself.
func (s *PostService) UpdateFields(ctx context.Context, userID, id string, update repository.PostUpdate) (*model.GeneratedPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}

	post, err := s.repo.UpdateFields(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("post updated",
		slog.String("id", id),
		slog.String("userId", userID),
	)

	return post, nil
}
