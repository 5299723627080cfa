package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

// AccountStore implements repository.AccountRepository over the shared
// pool.
type AccountStore struct {
	conn *sql.DB
}

// Accounts returns the account store view of the database.
func (db *DB) Accounts() *AccountStore {
	return &AccountStore{conn: db.conn}
}

var _ repository.AccountRepository = (*AccountStore)(nil)

// Get returns the user's Instagram account link, or ErrNotFound if the
// user has never connected one.
func (s *AccountStore) Get(ctx context.Context, userID string) (*model.InstagramAccount, error) {
	var a model.InstagramAccount

	err := s.conn.QueryRowContext(ctx,
		`SELECT user_id, access_token, business_id, page_id, username, is_active, connected_at, last_refreshed
		 FROM instagram_accounts
		 WHERE user_id = ?`,
		userID,
	).Scan(
		&a.UserID,
		&a.AccessToken,
		&a.BusinessID,
		&a.PageID,
		&a.Username,
		&a.IsActive,
		&a.ConnectedAt,
		&a.LastRefreshed,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("instagram account", userID)
		}
		return nil, fmt.Errorf("sqlite: getting instagram account: %w", err)
	}

	return &a, nil
}

// Upsert creates or refreshes the account link. A reconnect keeps the
// original connected_at and bumps last_refreshed.
func (s *AccountStore) Upsert(ctx context.Context, account *model.InstagramAccount) error {
	now := time.Now()
	account.ConnectedAt = now
	account.LastRefreshed = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO instagram_accounts (user_id, access_token, business_id, page_id, username, is_active, connected_at, last_refreshed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			business_id = excluded.business_id,
			page_id = excluded.page_id,
			username = excluded.username,
			is_active = excluded.is_active,
			last_refreshed = excluded.last_refreshed`,
		account.UserID,
		account.AccessToken,
		account.BusinessID,
		account.PageID,
		account.Username,
		account.IsActive,
		account.ConnectedAt,
		account.LastRefreshed,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting instagram account: %w", err)
	}

	return nil
}
