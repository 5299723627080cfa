package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/model"
	"github.com/fsakai/autopost/internal/repository"
)

// PostStore implements repository.PostRepository over the shared pool.
type PostStore struct {
	conn *sql.DB
}

// Posts returns the post store view of the database.
func (db *DB) Posts() *PostStore {
	return &PostStore{conn: db.conn}
}

var _ repository.PostRepository = (*PostStore)(nil)

const postColumns = `id, user_id, keywords, info, image_url, image_alt, image_source,
	image_photographer, caption, target_time, status, instagram_post_id,
	error_message, created_at, posted_at`

// Create inserts a new generated post with status GENERATED.
func (s *PostStore) Create(ctx context.Context, post *model.GeneratedPost) error {
	post.ID = xid.New().String()
	post.Status = model.StatusGenerated
	post.CreatedAt = time.Now()

	keywordsJSON, err := json.Marshal(post.Keywords)
	if err != nil {
		return fmt.Errorf("sqlite: encoding keywords: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO generated_posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		string(keywordsJSON),
		post.Info,
		post.Image.URL,
		post.Image.Alt,
		post.Image.Source,
		post.Image.Photographer,
		post.Caption,
		post.TargetTime,
		post.Status,
		post.InstagramPostID,
		post.ErrorMessage,
		post.CreatedAt,
		post.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetByID retrieves a post regardless of owner. Used by the dispatcher,
// which operates across users.
func (s *PostStore) GetByID(ctx context.Context, id string) (*model.GeneratedPost, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM generated_posts WHERE id = ?`, id)
	return scanPost(row, id)
}

// GetByUser retrieves a post only if it belongs to userID. A post owned by
// someone else is indistinguishable from a missing one.
func (s *PostStore) GetByUser(ctx context.Context, userID, id string) (*model.GeneratedPost, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM generated_posts WHERE id = ? AND user_id = ?`,
		id, userID)
	return scanPost(row, id)
}

// ListRecent returns the user's posts, newest first.
func (s *PostStore) ListRecent(ctx context.Context, userID string, opts repository.ListOptions) ([]model.GeneratedPost, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM generated_posts
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListDue returns GENERATED posts whose target time falls in [from, to].
// Terminal posts are excluded by the status filter, which is what makes a
// re-run of the dispatch window safe.
func (s *PostStore) ListDue(ctx context.Context, from, to time.Time) ([]model.GeneratedPost, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM generated_posts
		 WHERE status = ? AND target_time >= ? AND target_time <= ?
		 ORDER BY target_time ASC`,
		model.StatusGenerated, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing due posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// UpdateFields edits content fields in place. Allowed at any status —
// editing a POSTED caption for the record is legal — and never touches
// the status column.
func (s *PostStore) UpdateFields(ctx context.Context, userID, id string, update repository.PostUpdate) (*model.GeneratedPost, error) {
	post, err := s.GetByUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Info != nil {
		post.Info = *update.Info
	}
	if update.Caption != nil {
		post.Caption = *update.Caption
	}
	if update.ImageURL != nil {
		post.Image.URL = *update.ImageURL
	}
	if update.ImageAlt != nil {
		post.Image.Alt = *update.ImageAlt
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE generated_posts
		 SET info = ?, caption = ?, image_url = ?, image_alt = ?
		 WHERE id = ? AND user_id = ?`,
		post.Info, post.Caption, post.Image.URL, post.Image.Alt,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("post", id)
	}

	return post, nil
}

// Transition moves a post from one status to another.
//
// The UPDATE's WHERE clause includes the expected current status, making
// this a compare-and-set: of any number of concurrent callers trying to
// leave GENERATED, exactly one succeeds. When zero rows change, the post
// is re-read to tell "wrong status" (ErrInvalidTransition) apart from
// "no such post" (ErrNotFound).
func (s *PostStore) Transition(ctx context.Context, id string, from, to model.PostStatus, extra repository.TransitionExtra) error {
	if !from.CanTransitionTo(to) {
		return apperror.InvalidTransition(string(from), string(to))
	}

	result, err := s.conn.ExecContext(ctx,
		`UPDATE generated_posts
		 SET status = ?, instagram_post_id = ?, error_message = ?, posted_at = ?
		 WHERE id = ? AND status = ?`,
		to, extra.InstagramPostID, extra.ErrorMessage, extra.PostedAt,
		id, from,
	)
	if err != nil {
		return fmt.Errorf("sqlite: transitioning post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return apperror.InvalidTransition(string(current.Status), string(to))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner, id string) (*model.GeneratedPost, error) {
	var (
		post         model.GeneratedPost
		keywordsJSON string
		postedAt     sql.NullTime
	)

	err := row.Scan(
		&post.ID,
		&post.UserID,
		&keywordsJSON,
		&post.Info,
		&post.Image.URL,
		&post.Image.Alt,
		&post.Image.Source,
		&post.Image.Photographer,
		&post.Caption,
		&post.TargetTime,
		&post.Status,
		&post.InstagramPostID,
		&post.ErrorMessage,
		&post.CreatedAt,
		&postedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: scanning post: %w", err)
	}

	if err := json.Unmarshal([]byte(keywordsJSON), &post.Keywords); err != nil {
		return nil, fmt.Errorf("sqlite: decoding keywords: %w", err)
	}
	if postedAt.Valid {
		t := postedAt.Time
		post.PostedAt = &t
	}

	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]model.GeneratedPost, error) {
	var posts []model.GeneratedPost
	for rows.Next() {
		post, err := scanPost(rows, "")
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	if posts == nil {
		posts = []model.GeneratedPost{}
	}
	return posts, nil
}
