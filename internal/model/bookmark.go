package model

import "time"

// Bookmark links a user to an external recipe id. The pair is unique.
type Bookmark struct {
	UserID    string    `json:"userId"`
	RecipeID  string    `json:"recipeId"`
	CreatedAt time.Time `json:"createdAt"`
}
