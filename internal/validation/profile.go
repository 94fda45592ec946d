package validation

import (
	"fmt"

	"github.com/digitalmaniak/sidewidth/internal/models"
)

// ValidateLocalRadius accepts 5..50 km in steps of 5.
func ValidateLocalRadius(km int) error {
	if km < models.MinLocalRadiusKm || km > models.MaxLocalRadiusKm || km%models.LocalRadiusStepKm != 0 {
		return fmt.Errorf("local_radius must be between %d and %d in steps of %d",
			models.MinLocalRadiusKm, models.MaxLocalRadiusKm, models.LocalRadiusStepKm)
	}
	return nil
}

// NormalizeInterests validates category names and removes duplicates while
// keeping the caller's order. An empty input yields an empty, non-nil list.
func NormalizeInterests(raw []string) ([]models.Category, error) {
	out := make([]models.Category, 0, len(raw))
	seen := make(map[models.Category]struct{}, len(raw))
	for _, name := range raw {
		c, ok := models.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
