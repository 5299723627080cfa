package model

import "time"

// PostStatus is the lifecycle state of a generated post.
//
// The state machine is strictly forward:
//
//	GENERATED → POSTED   (publish succeeded)
//	GENERATED → REJECTED (user declined via the confirm gate)
//	GENERATED → FAILED   (publish failed or no active account link)
//
// POSTED, REJECTED, and FAILED are terminal — no edge leaves them. A failed
// post is not retried in place; recovery is generating a fresh post.
type PostStatus string

const (
	StatusGenerated PostStatus = "GENERATED"
	StatusPosted    PostStatus = "POSTED"
	StatusRejected  PostStatus = "REJECTED"
	StatusFailed    PostStatus = "FAILED"
)

// Valid reports whether s is a known status value.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusGenerated, StatusPosted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s PostStatus) Terminal() bool {
	return s == StatusPosted || s == StatusRejected || s == StatusFailed
}

// CanTransitionTo reports whether the edge s → next is legal.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	return s == StatusGenerated && next.Valid() && next != StatusGenerated
}

// PostImage is the image selected for a post, with attribution for the
// source provider.
type PostImage struct {
	URL          string `json:"url"          db:"image_url"`
	Alt          string `json:"alt"          db:"image_alt"`
	Source       string `json:"source"       db:"image_source"` // "unsplash", "pexels", "default"
	Photographer string `json:"photographer" db:"image_photographer"`
}

// GeneratedPost is one produced post artifact with its lifecycle state.
//
// Keywords are a snapshot of the settings at generation time, not a live
// reference. TargetTime is the intended publish instant and is immutable
// after creation. InstagramPostID is set exactly when the post reaches
// POSTED; ErrorMessage exactly when it reaches FAILED.
type GeneratedPost struct {
	ID              string     `json:"id"              db:"id"`
	UserID          string     `json:"-"               db:"user_id"`
	Keywords        []string   `json:"keywords"        db:"keywords"`
	Info            string     `json:"info"            db:"info"`
	Image           PostImage  `json:"image"`
	Caption         string     `json:"caption"         db:"caption"`
	TargetTime      time.Time  `json:"targetTime"      db:"target_time"`
	Status          PostStatus `json:"status"          db:"status"`
	InstagramPostID string     `json:"instagramPostId,omitempty" db:"instagram_post_id"`
	ErrorMessage    string     `json:"error,omitempty" db:"error_message"`
	CreatedAt       time.Time  `json:"createdAt"       db:"created_at"`
	PostedAt        *time.Time `json:"postedAt,omitempty" db:"posted_at"`
}
