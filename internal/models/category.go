package models

import "strings"

// Category is the closed set of topics a post can belong to.
type Category string

// Persisted category values. Spelling matters for interest membership.
const (
	CategoryPolitics      Category = "POLITICS"
	CategorySports        Category = "SPORTS"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryGaming        Category = "GAMING"
	CategoryTechnology    Category = "TECHNOLOGY"
	CategoryFood          Category = "FOOD"
	CategoryPhilosophy    Category = "PHILOSOPHY"
	CategoryOther         Category = "OTHER"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPolitics,
	CategorySports,
	CategoryEntertainment,
	CategoryGaming,
	CategoryTechnology,
	CategoryFood,
	CategoryPhilosophy,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes raw and checks it against the closed set.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	return c, c.Valid()
}
