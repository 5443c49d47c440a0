// Package model defines the data structures used throughout the application.
package model

import "time"

// User holds sign-in credentials. A user signs up with email + password or
// signs in with GitHub; both paths end up with one row here and one Profile.
//
// PasswordHash is empty for GitHub-only accounts, and GitHubID is nil for
// email accounts. Neither is ever serialised to clients.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public, editable part of an account.
// ID is the same as the owning User.ID.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updatedAt"`
}
