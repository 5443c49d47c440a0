package model

// Recipe is the summary shape returned by ingredient search and bookmark
// listings.
type Recipe struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	Image                 string `json:"image"`
	UsedIngredientCount   int    `json:"usedIngredientCount"`
	MissedIngredientCount int    `json:"missedIngredientCount"`
}

// Ingredient is one line of a recipe's ingredient list. Original is the
// human-readable line ("2 cups of flour").
type Ingredient struct {
	Name     string `json:"name"`
	Original string `json:"original"`
}

// RecipeDetail is a recipe with plain-text summary and instructions.
type RecipeDetail struct {
	ID             int          `json:"id"`
	Title          string       `json:"title"`
	Image          string       `json:"image"`
	Servings       int          `json:"servings"`
	ReadyInMinutes int          `json:"readyInMinutes"`
	Summary        string       `json:"summary"`
	Instructions   string       `json:"instructions"`
	Steps          []string     `json:"steps"`
	Ingredients    []Ingredient `json:"ingredients"`
	SourceURL      string       `json:"sourceUrl,omitempty"`
	Bookmarked     bool         `json:"bookmarked"`
}

// IngredientNames returns the ingredient names in recipe order.
func (d *RecipeDetail) IngredientNames() []string {
	names := make([]string, 0, len(d.Ingredients))
	for _, ing := range d.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}
