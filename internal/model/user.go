// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered dashboard account.
//
// Email is the login identifier (UNIQUE in the DB). PasswordHash holds the
// bcrypt hash and is never serialized to JSON — note the `json:"-"` tag.
// Deleting a user cascades to its settings, account link, and generated
// posts via foreign keys.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
