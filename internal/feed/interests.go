package feed

import "github.com/digitalmaniak/sidewidth/internal/models"

// InterestSet is a viewer's category filter. The zero value admits every
// category; a restricted set with no members admits none.
type InterestSet struct {
	restricted bool
	members    []models.Category
}

// AllInterests admits every category.
func AllInterests() InterestSet {
	return InterestSet{}
}

// NewInterestSet builds a set from a category list. A nil list admits every
// category and an empty list admits none. Unknown and repeated categories are
// dropped.
func NewInterestSet(categories []models.Category) InterestSet {
	if categories == nil {
		return AllInterests()
	}
	set := InterestSet{restricted: true, members: []models.Category{}}
	for _, c := range categories {
		if c.Valid() && !set.Allows(c) {
			set.members = append(set.members, c)
		}
	}
	return set
}

// InterestsFromProfile reads the stored interest list of a profile.
func InterestsFromProfile(list models.InterestList) InterestSet {
	if list == nil {
		return AllInterests()
	}
	categories := make([]models.Category, 0, len(list))
	for _, raw := range list {
		if c, ok := models.ParseCategory(raw); ok {
			categories = append(categories, c)
		}
	}
	return NewInterestSet(categories)
}

// All reports whether the set admits every category.
func (s InterestSet) All() bool { return !s.restricted }

// None reports whether the set admits no category at all.
func (s InterestSet) None() bool { return s.restricted && len(s.members) == 0 }

// Allows reports whether category c passes the filter.
func (s InterestSet) Allows(c models.Category) bool {
	if !s.restricted {
		return true
	}
	for _, m := range s.members {
		if m == c {
			return true
		}
	}
	return false
}

// Categories returns the allowlist, or nil when the set admits everything.
func (s InterestSet) Categories() []models.Category {
	if !s.restricted {
		return nil
	}
	out := make([]models.Category, len(s.members))
	copy(out, s.members)
	return out
}

// Strings returns the allowlist as plain strings for SQL binding.
func (s InterestSet) Strings() []string {
	if !s.restricted {
		return nil
	}
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = string(m)
	}
	return out
}

// Filter keeps the posts whose category passes the set.
func (s InterestSet) Filter(posts []models.FeedPost) []models.FeedPost {
	if !s.restricted {
		return posts
	}
	out := make([]models.FeedPost, 0, len(posts))
	for _, p := range posts {
		if s.Allows(p.Category) {
			out = append(out, p)
		}
	}
	return out
}
