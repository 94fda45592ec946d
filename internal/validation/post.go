// Package validation holds input rules shared by services and handlers.
package validation

import (
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Field limits in characters.
const (
	MaxSideLength         = 140
	MaxDescriptionLength  = 1000
	MaxLocationNameLength = 120
)

var plainText = bluemonday.StrictPolicy()

// SanitizeText strips markup from user text and trims surrounding space.
// Entities escaped by the sanitizer are decoded again so "Cats & Dogs"
// survives unchanged.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// ValidateSide checks one side of a framing after sanitizing.
func ValidateSide(name, side string) error {
	if side == "" {
		return fmt.Errorf("%s is required", name)
	}
	if utf8.RuneCountInString(side) > MaxSideLength {
		return fmt.Errorf("%s too long (max %d characters)", name, MaxSideLength)
	}
	return nil
}

// ValidateOptionalText checks a nullable free-text field against max.
func ValidateOptionalText(name string, s *string, max int) error {
	if s == nil {
		return nil
	}
	if utf8.RuneCountInString(*s) > max {
		return fmt.Errorf("%s too long (max %d characters)", name, max)
	}
	return nil
}

// ValidateCoordinates requires lat and long together and within range.
func ValidateCoordinates(lat, long *float64) error {
	if (lat == nil) != (long == nil) {
		return fmt.Errorf("lat and long must be provided together")
	}
	if lat == nil {
		return nil
	}
	if math.IsNaN(*lat) || math.IsInf(*lat, 0) || *lat < -90 || *lat > 90 {
		return fmt.Errorf("lat must be between -90 and 90")
	}
	if math.IsNaN(*long) || math.IsInf(*long, 0) || *long < -180 || *long > 180 {
		return fmt.Errorf("long must be between -180 and 180")
	}
	return nil
}
