package model

import "time"

// ExpiryDateLayout is the only accepted expiry date format. Dates stored in
// this layout sort lexicographically in calendar order.
const ExpiryDateLayout = "2006-01-02"

// PantryItem is one food item a user keeps at home.
//
// Items are inserted and deleted, never edited. FullName is a snapshot of the
// owner's profile name at insert time.
type PantryItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	FoodName   string    `json:"foodName"`
	ExpiryDate string    `json:"expiryDate"`
	FullName   string    `json:"fullName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SortOrder controls pantry listing by expiry date.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PantryEvent is pushed to a user's realtime subscribers when their pantry
// changes.
type PantryEvent struct {
	Type string     `json:"type"` // pantry.inserted | pantry.deleted
	Item PantryItem `json:"item"`
}

const (
	PantryInserted = "pantry.inserted"
	PantryDeleted  = "pantry.deleted"
)
