package feed

import (
	"testing"

	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestInterestSet_ZeroValueAdmitsAll(t *testing.T) {
	var s InterestSet
	assert.True(t, s.All())
	assert.False(t, s.None())
	assert.Nil(t, s.Categories())
	for _, c := range models.Categories {
		assert.True(t, s.Allows(c))
	}
}

func TestInterestSet_EmptyAdmitsNone(t *testing.T) {
	s := NewInterestSet([]models.Category{})
	assert.False(t, s.All())
	assert.True(t, s.None())
	assert.False(t, s.Allows(models.CategoryFood))
	assert.Empty(t, s.Filter([]models.FeedPost{{Category: models.CategoryFood}}))
}

func TestInterestSet_Allowlist(t *testing.T) {
	s := NewInterestSet([]models.Category{models.CategorySports, "BOGUS", models.CategorySports, models.CategoryFood})
	assert.Equal(t, []models.Category{models.CategorySports, models.CategoryFood}, s.Categories())
	assert.Equal(t, []string{"SPORTS", "FOOD"}, s.Strings())
	assert.True(t, s.Allows(models.CategoryFood))
	assert.False(t, s.Allows(models.CategoryPolitics))

	posts := []models.FeedPost{
		{Category: models.CategoryPolitics},
		{Category: models.CategorySports},
		{Category: models.CategoryGaming},
	}
	kept := s.Filter(posts)
	assert.Len(t, kept, 1)
	assert.Equal(t, models.CategorySports, kept[0].Category)
}

func TestInterestsFromProfile(t *testing.T) {
	assert.True(t, InterestsFromProfile(nil).All())
	assert.True(t, InterestsFromProfile(models.InterestList{}).None())

	s := InterestsFromProfile(models.InterestList{"gaming", "TECHNOLOGY", "unknown"})
	assert.Equal(t, []models.Category{models.CategoryGaming, models.CategoryTechnology}, s.Categories())

	// a stored list of only unknown names admits nothing rather than everything
	assert.True(t, InterestsFromProfile(models.InterestList{"unknown"}).None())
}
