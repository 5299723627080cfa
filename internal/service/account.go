package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

// AccountService manages the user's link to the publishing platform.
type AccountService struct {
	repo   repository.AccountRepository
	logger *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(repo repository.AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the user's account link, or ErrNotFound if the user never
// connected one.
func (s *AccountService) Get(ctx context.Context, userID string) (*model.InstagramAccount, error) {
	return s.repo.Get(ctx, userID)
}

// ConnectParams are the fields accepted by the connect operation.
type ConnectParams struct {
	AccessToken string
	BusinessID  string
	PageID      string
	Username    string
}

// Connect creates or refreshes the account link and marks it active. The
// access token is mandatory; the business/page identifiers may arrive
// later via a reconnect.
func (s *AccountService) Connect(ctx context.Context, userID string, params ConnectParams) (*model.InstagramAccount, error) {
	token := strings.TrimSpace(params.AccessToken)
	if token == "" {
		return nil, apperror.ValidationFailed("accessToken", "アクセストークンが必要です")
	}

	account := &model.InstagramAccount{
		UserID:      userID,
		AccessToken: token,
		BusinessID:  strings.TrimSpace(params.BusinessID),
		PageID:      strings.TrimSpace(params.PageID),
		Username:    strings.TrimSpace(params.Username),
		IsActive:    true,
	}

	if err := s.repo.Upsert(ctx, account); err != nil {
		s.logger.Error("failed to save instagram account",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("instagram account connected",
		slog.String("userId", userID),
		slog.String("username", account.Username),
	)

	// Re-read so connected_at reflects what the store kept on a
	// reconnect (the original row's value, not this call's).
	return s.repo.Get(ctx, userID)
}
