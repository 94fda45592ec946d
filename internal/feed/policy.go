package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/stats"
)

// OrderTerm is one key of a sort policy.
type OrderTerm struct {
	Column string
	Desc   bool
	cmp    func(a, b models.FeedPost) int
}

func (t OrderTerm) String() string {
	if t.Desc {
		return t.Column + " DESC"
	}
	return t.Column + " ASC"
}

// Policy is a total order over feed posts plus an optional pre-filter.
type Policy struct {
	Sort  SortBy
	Order []OrderTerm

	// Where is the SQL form of the pre-filter, empty when the policy admits
	// every post. Args binds its placeholders.
	Where string
	Args  []any

	admits func(stats.Stats) bool
}

var (
	byCreatedAt = OrderTerm{Column: "created_at", cmp: func(a, b models.FeedPost) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	}}
	byTrending = OrderTerm{Column: "trending_score", cmp: func(a, b models.FeedPost) int {
		return cmp.Compare(a.TrendingScore, b.TrendingScore)
	}}
	byStdDev = OrderTerm{Column: "vote_stddev", cmp: func(a, b models.FeedPost) int {
		return cmp.Compare(a.VoteStdDev, b.VoteStdDev)
	}}
	byCount = OrderTerm{Column: "vote_count", cmp: func(a, b models.FeedPost) int {
		return cmp.Compare(a.VoteCount, b.VoteCount)
	}}
	// uuid columns compare bytewise in Postgres
	byID = OrderTerm{Column: "id", cmp: func(a, b models.FeedPost) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	}}
)

func desc(t OrderTerm) OrderTerm {
	t.Desc = true
	return t
}

const spreadFilter = "vote_count >= ? AND vote_stddev %s ?"

// PolicyFor returns the ordering policy for s.
func PolicyFor(s SortBy) (Policy, error) {
	switch s {
	case SortLatest:
		return Policy{
			Sort:  s,
			Order: []OrderTerm{desc(byCreatedAt), byID},
		}, nil
	case SortTrending:
		return Policy{
			Sort:  s,
			Order: []OrderTerm{desc(byTrending), desc(byCreatedAt), byID},
		}, nil
	case SortDivided:
		return Policy{
			Sort:   s,
			Order:  []OrderTerm{desc(byStdDev), desc(byCount), byID},
			Where:  fmt.Sprintf(spreadFilter, ">"),
			Args:   []any{stats.MinVotesForSpread, stats.DividedThreshold},
			admits: stats.Stats.Divided,
		}, nil
	case SortConsensus:
		return Policy{
			Sort:   s,
			Order:  []OrderTerm{byStdDev, desc(byCount), byID},
			Where:  fmt.Sprintf(spreadFilter, "<"),
			Args:   []any{stats.MinVotesForSpread, stats.DividedThreshold},
			admits: stats.Stats.Consensus,
		}, nil
	default:
		return Policy{}, models.NewValidationError(fmt.Sprintf("unknown sort %q", s))
	}
}

// OrderClause renders the policy as an SQL ORDER BY list.
func (p Policy) OrderClause() string {
	terms := make([]string, len(p.Order))
	for i, t := range p.Order {
		terms[i] = t.String()
	}
	return strings.Join(terms, ", ")
}

// Admits reports whether a post with statistics s passes the pre-filter.
func (p Policy) Admits(s stats.Stats) bool {
	if p.admits == nil {
		return true
	}
	return p.admits(s)
}

// Compare orders a before b according to the policy.
func (p Policy) Compare(a, b models.FeedPost) int {
	for _, t := range p.Order {
		c := t.cmp(a, b)
		if t.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// Apply filters and sorts posts in memory. It is the reference semantics of
// the SQL rendering and is used where rows are not served by the database.
func (p Policy) Apply(posts []models.FeedPost) []models.FeedPost {
	out := make([]models.FeedPost, 0, len(posts))
	for _, post := range posts {
		if p.Admits(post.Stats()) {
			out = append(out, post)
		}
	}
	slices.SortStableFunc(out, p.Compare)
	return out
}
