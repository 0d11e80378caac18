package battle

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beingsarangi/battle-server/internal/card"
)

// Status is the lifecycle state of a battle session.
type Status int

const (
	StatusPendingAccept Status = iota
	StatusDrafting
	StatusRoundInProgress
	StatusComplete
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPendingAccept:
		return "PENDING_ACCEPT"
	case StatusDrafting:
		return "DRAFTING"
	case StatusRoundInProgress:
		return "ROUND_IN_PROGRESS"
	case StatusComplete:
		return "COMPLETE"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further mutation is permitted.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// RoundResult records the outcome of one comparison round.
type RoundResult struct {
	Number   int
	WinnerID string
	Stat     string
	CardA    card.Card
	CardB    card.Card
}

// Session is one challenge-to-completion battle between two
// participants. It is created on challenge issuance, mutated only by the
// engine, and removed from the registry on reaching a terminal status.
type Session struct {
	ID           string
	ChallengerID string
	OpponentID   string
	CreateTime   time.Time

	mu           sync.RWMutex
	status       Status
	currentRound int
	handA        *card.Hand
	handB        *card.Hand
	scoreA       int
	scoreB       int
	results      []RoundResult
	published    bool
}

// NewSession creates a session in PendingAccept with the initial 3-card
// hands already sampled.
func NewSession(challengerID, opponentID string, handA, handB *card.Hand) *Session {
	return &Session{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		CreateTime:   time.Now(),
		status:       StatusPendingAccept,
		handA:        handA,
		handB:        handB,
		results:      make([]RoundResult, 0, roundsPerBattle),
	}
}

// Participants returns both participant ids, challenger first.
func (s *Session) Participants() (string, string) {
	return s.ChallengerID, s.OpponentID
}

// Involves reports whether the participant is one of the session's two
// sides.
func (s *Session) Involves(userID string) bool {
	return s.ChallengerID == userID || s.OpponentID == userID
}

// Opponent returns the other side's id, or "" when userID is not a
// participant.
func (s *Session) Opponent(userID string) string {
	switch userID {
	case s.ChallengerID:
		return s.OpponentID
	case s.OpponentID:
		return s.ChallengerID
	default:
		return ""
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CurrentRound returns the round number while a round is in progress,
// zero otherwise.
func (s *Session) CurrentRound() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRound
}

// Hand returns the participant's hand. The hand is exclusively owned by
// the round currently executing for this session; nothing else mutates
// it mid-round.
func (s *Session) Hand(userID string) *card.Hand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch userID {
	case s.ChallengerID:
		return s.handA
	case s.OpponentID:
		return s.handB
	default:
		return nil
	}
}

// SetHands installs the post-draft 5-card hands.
func (s *Session) SetHands(handA, handB *card.Hand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handA = handA
	s.handB = handB
}

// Scores returns the accumulated round wins, challenger first.
func (s *Session) Scores() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreA, s.scoreB
}

// Results returns a copy of the recorded round results.
func (s *Session) Results() []RoundResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoundResult, len(s.results))
	copy(out, s.results)
	return out
}

// transition is a compare-and-swap on the lifecycle status: it moves
// from -> to atomically and fails when the session is not in the
// expected source state. Racing accepts, a stale-challenge sweep landing
// after an accept, or a second cancel all lose the swap and become
// no-ops for their callers.
func (s *Session) transition(from, to Status, round int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != from {
		return fmt.Errorf("session %s is %s, not %s", s.ID, s.status, from)
	}
	s.status = to
	s.currentRound = round
	return nil
}

// recordResult appends a round result and feeds the session-level score.
// Scores live on the session, not in round-local variables, so every
// round's winner counts toward the final comparison.
func (s *Session) recordResult(res RoundResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, res)
	switch res.WinnerID {
	case s.ChallengerID:
		s.scoreA++
	case s.OpponentID:
		s.scoreB++
	}
}

// markPublished flips the publish guard, reporting whether this call was
// the first.
func (s *Session) markPublished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published {
		return false
	}
	s.published = true
	return true
}

// SessionSnapshot is a consistent copy of a session for external use.
type SessionSnapshot struct {
	ID           string
	ChallengerID string
	OpponentID   string
	Status       Status
	CurrentRound int
	ScoreA       int
	ScoreB       int
	Results      []RoundResult
	CreateTime   time.Time
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]RoundResult, len(s.results))
	copy(results, s.results)

	return SessionSnapshot{
		ID:           s.ID,
		ChallengerID: s.ChallengerID,
		OpponentID:   s.OpponentID,
		Status:       s.status,
		CurrentRound: s.currentRound,
		ScoreA:       s.scoreA,
		ScoreB:       s.scoreB,
		Results:      results,
		CreateTime:   s.CreateTime,
	}
}
