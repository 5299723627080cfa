package model

import "time"

// InstagramAccount is a user's link to the publishing platform. One row per
// user, upserted by the connect flow. Publishing requires IsActive to be
// true and a non-empty BusinessID; the dispatcher fails a post (not the
// batch) when either is missing.
type InstagramAccount struct {
	UserID        string    `json:"-"             db:"user_id"`
	AccessToken   string    `json:"-"             db:"access_token"` // secret, never serialized
	BusinessID    string    `json:"businessId"    db:"business_id"`
	PageID        string    `json:"pageId"        db:"page_id"`
	Username      string    `json:"username"      db:"username"`
	IsActive      bool      `json:"isActive"      db:"is_active"`
	ConnectedAt   time.Time `json:"connectedAt"   db:"connected_at"`
	LastRefreshed time.Time `json:"lastRefreshed" db:"last_refreshed"`
}
