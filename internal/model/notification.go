package model

import "time"

// Notification kinds. An item gets at most one notification of each kind.
const (
	NotifyExpiring = "expiring"
	NotifyExpired  = "expired"
)

// ExpiryNotification records that the expiry job already told a user about
// a pantry item.
type ExpiryNotification struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	PantryItemID string    `json:"pantryItemId"`
	Kind         string    `json:"kind"`
	SentAt       time.Time `json:"sentAt"`
}

// ExpiringItem is a pantry item the expiry job still has to notify about.
type ExpiringItem struct {
	PantryItem
	Kind string
}
