package client

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/google/uuid"
)

// VoteState is the observable state of a vote session.
type VoteState int

const (
	VoteIdle VoteState = iota
	VoteDragging
	VotePendingConfirm
	VoteCommitting
	VoteCommitted
	VoteDisabled
)

var voteStateNames = [...]string{"idle", "dragging", "pending_confirm", "committing", "committed", "disabled"}

func (s VoteState) String() string {
	if int(s) < len(voteStateNames) {
		return voteStateNames[s]
	}
	return "unknown"
}

// Slider thresholds. Releases with |v| below SnapThreshold read as 0 and
// releases with |v| up to EngageThreshold spring back without a vote.
const (
	SnapThreshold   = 5
	EngageThreshold = 10
)

var (
	// ErrVoteLocked is returned once a vote has been committed.
	ErrVoteLocked = errors.New("vote already committed")
	// ErrVoteDisabled is returned when there is no signed-in viewer.
	ErrVoteDisabled = errors.New("voting requires a signed-in viewer")
	// ErrInvalidTransition is returned for an action the current state does not accept.
	ErrInvalidTransition = errors.New("invalid vote transition")
)

// VoteSubmitter persists a vote. APIClient implements it.
type VoteSubmitter interface {
	SubmitVote(ctx context.Context, postID uuid.UUID, value int) (stats.Stats, error)
}

// VoteSession turns one viewer's slider gesture on one post into at most
// one committed vote.
type VoteSession struct {
	submitter VoteSubmitter
	postID    uuid.UUID

	mu      sync.Mutex
	state   VoteState
	value   float64
	stats   stats.Stats
	lastErr error
}

// NewVoteSession starts a session. A non-zero prior vote starts committed;
// a session without a signed-in viewer is disabled.
func NewVoteSession(submitter VoteSubmitter, postID uuid.UUID, signedIn bool, priorVote int) *VoteSession {
	s := &VoteSession{submitter: submitter, postID: postID}
	switch {
	case !signedIn:
		s.state = VoteDisabled
	case priorVote != 0:
		s.state = VoteCommitted
		s.value = float64(priorVote)
	}
	return s
}

// State returns the current state.
func (s *VoteSession) State() VoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Value returns the slider value, rounded.
func (s *VoteSession) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(math.Round(s.value))
}

// Stats returns the statistics received on commit.
func (s *VoteSession) Stats() stats.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the error of the last failed commit.
func (s *VoteSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *VoteSession) lockedErr() error {
	switch s.state {
	case VoteDisabled:
		return ErrVoteDisabled
	case VoteCommitted, VoteCommitting:
		return ErrVoteLocked
	}
	return nil
}

// Drag moves the slider to v, clamped to the vote range. Dragging again
// while a value awaits confirmation discards that value.
func (s *VoteSession) Drag(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lockedErr(); err != nil {
		return err
	}
	s.state = VoteDragging
	s.value = math.Max(stats.MinValue, math.Min(stats.MaxValue, v))
	return nil
}

// Release ends a drag and returns the resulting state.
func (s *VoteSession) Release() (VoteState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != VoteDragging {
		if err := s.lockedErr(); err != nil {
			return s.state, err
		}
		return s.state, ErrInvalidTransition
	}

	v := math.Round(s.value)
	if math.Abs(v) < SnapThreshold {
		v = 0
	}
	if math.Abs(v) <= EngageThreshold {
		s.state = VoteIdle
		s.value = 0
		return s.state, nil
	}
	s.state = VotePendingConfirm
	s.value = v
	return s.state, nil
}

// Confirm submits the held value. On failure the session returns to
// PendingConfirm with the value intact so the viewer can retry.
func (s *VoteSession) Confirm(ctx context.Context) (stats.Stats, error) {
	s.mu.Lock()
	if s.state != VotePendingConfirm {
		err := s.lockedErr()
		if err == nil {
			err = ErrInvalidTransition
		}
		s.mu.Unlock()
		return stats.Stats{}, err
	}
	s.state = VoteCommitting
	value := int(s.value)
	s.mu.Unlock()

	st, err := s.submitter.SubmitVote(ctx, s.postID, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = VotePendingConfirm
		s.lastErr = err
		return stats.Stats{}, err
	}
	s.state = VoteCommitted
	s.stats = st
	s.lastErr = nil
	return st, nil
}
