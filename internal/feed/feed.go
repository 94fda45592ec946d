// Package feed defines feed requests, sort policies and interest filtering
// shared by the repository, service and client layers.
package feed

import (
	"fmt"
	"math"
	"strings"

	"github.com/digitalmaniak/sidewidth/internal/models"
)

// DefaultPageSize is the number of posts per feed page.
const DefaultPageSize = 10

// Type selects the candidate set of a feed.
type Type string

const (
	Global Type = "global"
	Local  Type = "local"
)

// SortBy selects the ordering policy of a feed.
type SortBy string

const (
	SortLatest    SortBy = "latest"
	SortTrending  SortBy = "trending"
	SortDivided   SortBy = "divided"
	SortConsensus SortBy = "consensus"
)

// Sorts lists every sort policy in display order.
var Sorts = []SortBy{SortLatest, SortTrending, SortDivided, SortConsensus}

// ParseType parses a feed type. An empty value selects the global feed.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return Global, nil
	case Global, Local:
		return t, nil
	default:
		return "", models.NewValidationError(fmt.Sprintf("unknown feed type %q", raw))
	}
}

// ParseSort parses a sort policy name. An empty value selects latest.
func ParseSort(raw string) (SortBy, error) {
	s := SortBy(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return SortLatest, nil
	}
	for _, known := range Sorts {
		if s == known {
			return s, nil
		}
	}
	return "", models.NewValidationError(fmt.Sprintf("unknown sort %q", raw))
}

// Location is a viewer position and search radius for the local feed.
type Location struct {
	Lat      float64
	Long     float64
	RadiusKm float64
}

// Request is one page of a feed as asked for by a viewer.
type Request struct {
	Type Type
	Sort SortBy
	// Page is 1-based.
	Page int

	// Lat and Long are required for the local feed.
	Lat  *float64
	Long *float64
	// RadiusKm falls back to the viewer's profile radius when nil.
	RadiusKm *float64
}

// NormalizedPage returns the requested page, treating anything below 1 as 1.
func (r Request) NormalizedPage() int {
	if r.Page < 1 {
		return 1
	}
	return r.Page
}

// Offset returns the row offset of the requested page.
func (r Request) Offset(pageSize int) int {
	return (r.NormalizedPage() - 1) * pageSize
}

// HasCoordinates reports whether both coordinates are present.
func (r Request) HasCoordinates() bool {
	return r.Lat != nil && r.Long != nil
}

// Validate checks the request shape. It does not resolve the default radius.
func (r Request) Validate() error {
	switch r.Type {
	case Global, Local:
	default:
		return models.NewValidationError(fmt.Sprintf("unknown feed type %q", r.Type))
	}
	if _, err := PolicyFor(r.Sort); err != nil {
		return err
	}
	if r.Type != Local {
		return nil
	}
	if !r.HasCoordinates() {
		return models.NewValidationError("local feed requires lat and long")
	}
	if !finite(*r.Lat) || !finite(*r.Long) ||
		*r.Lat < -90 || *r.Lat > 90 || *r.Long < -180 || *r.Long > 180 {
		return models.NewValidationError("coordinates out of range")
	}
	if r.RadiusKm != nil {
		if !finite(*r.RadiusKm) || *r.RadiusKm <= 0 || *r.RadiusKm > models.MaxLocalRadiusKm {
			return models.NewValidationError(fmt.Sprintf("radius must be in (0, %d] km", models.MaxLocalRadiusKm))
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Page is one page of feed results.
type Page struct {
	Posts    []models.FeedPost `json:"posts"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	HasMore  bool              `json:"has_more"`
}

// NewPage builds a page. HasMore is set when the page came back full.
func NewPage(posts []models.FeedPost, page, pageSize int) Page {
	if posts == nil {
		posts = []models.FeedPost{}
	}
	return Page{
		Posts:    posts,
		Page:     page,
		PageSize: pageSize,
		HasMore:  len(posts) >= pageSize,
	}
}
