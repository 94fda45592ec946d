// Package stats computes the consensus statistics of a post from its raw vote values.
package stats

import (
	"math"

	"github.com/google/uuid"
)

const (
	// DividedThreshold is the standard deviation boundary between the
	// "divided" and "consensus" feeds.
	DividedThreshold = 50.0

	// MinVotesForSpread is the vote count below which a post is neither
	// divided nor in consensus.
	MinVotesForSpread = 2

	// MinValue and MaxValue bound a single vote.
	MinValue = -100
	MaxValue = 100
)

// Stats is the aggregate of a multiset of vote values.
type Stats struct {
	Count  int     `json:"vote_count"`
	Mean   float64 `json:"vote_average"`
	StdDev float64 `json:"vote_stddev"`
}

// Accumulator folds vote values into running sums.
// The zero value is ready to use.
type Accumulator struct {
	n     int
	sum   float64
	sqSum float64
}

// Add folds one value into the accumulator.
func (a *Accumulator) Add(v int) {
	f := float64(v)
	a.n++
	a.sum += f
	a.sqSum += f * f
}

// Stats returns the population statistics of the values added so far.
func (a Accumulator) Stats() Stats {
	if a.n == 0 {
		return Stats{}
	}
	n := float64(a.n)
	mean := a.sum / n
	// clamp float artifacts such as -1e-13 for all-equal inputs
	variance := math.Max(0, a.sqSum/n-mean*mean)
	stddev := math.Sqrt(variance)
	if a.n == 1 {
		stddev = 0
	}
	return Stats{Count: a.n, Mean: mean, StdDev: stddev}
}

// Compute returns the statistics of values.
func Compute(values []int) Stats {
	var acc Accumulator
	for _, v := range values {
		acc.Add(v)
	}
	return acc.Stats()
}

// Grouped groups items by key and computes the statistics of each group.
// The result does not depend on the order of items.
func Grouped[K comparable, T any](items []T, key func(T) K, value func(T) int) map[K]Stats {
	groups := make(map[K]*Accumulator)
	for _, it := range items {
		k := key(it)
		acc, ok := groups[k]
		if !ok {
			acc = &Accumulator{}
			groups[k] = acc
		}
		acc.Add(value(it))
	}

	out := make(map[K]Stats, len(groups))
	for k, acc := range groups {
		out[k] = acc.Stats()
	}
	return out
}

// PostValue is one vote value tagged with the post it belongs to.
type PostValue struct {
	PostID uuid.UUID
	Value  int
}

// ByPost computes the statistics of every post present in votes.
func ByPost(votes []PostValue) map[uuid.UUID]Stats {
	return Grouped(votes,
		func(v PostValue) uuid.UUID { return v.PostID },
		func(v PostValue) int { return v.Value },
	)
}

// InRange reports whether v is an acceptable vote value.
func InRange(v int) bool {
	return v >= MinValue && v <= MaxValue
}

// Divided reports whether s qualifies for the divided feed.
func (s Stats) Divided() bool {
	return s.Count >= MinVotesForSpread && s.StdDev > DividedThreshold
}

// Consensus reports whether s qualifies for the consensus feed.
func (s Stats) Consensus() bool {
	return s.Count >= MinVotesForSpread && s.StdDev < DividedThreshold
}

// Consensus bands shown next to the SideWidth of a post.
const (
	LabelWaiting            = "Waiting for more votes"
	LabelTightConsensus     = "Tight Consensus"
	LabelGeneralConsensus   = "General Consensus"
	LabelMixedOpinions      = "Mixed Opinions"
	LabelDivided            = "Divided"
	LabelStrongDisagreement = "Strong Disagreement"
)

// Label classifies the spread of opinions in s.
func (s Stats) Label() string {
	switch {
	case s.Count <= 1:
		return LabelWaiting
	case s.StdDev < 20:
		return LabelTightConsensus
	case s.StdDev < 40:
		return LabelGeneralConsensus
	case s.StdDev < 60:
		return LabelMixedOpinions
	case s.StdDev < 80:
		return LabelDivided
	default:
		return LabelStrongDisagreement
	}
}
