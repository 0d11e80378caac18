package battle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/card"
	"github.com/beingsarangi/battle-server/internal/messenger"
)

const (
	initialHandSize = 3
	draftPicks      = 2
	roundsPerBattle = 5
)

// Config carries the tunable timing knobs of the battle engine.
type Config struct {
	// DraftPickTimeout bounds each individual draft selection.
	DraftPickTimeout time.Duration
	// RoundPickTimeout bounds each round card selection.
	RoundPickTimeout time.Duration
	// ChallengeTTL is how long an unaccepted challenge may sit before
	// the sweeper cancels it.
	ChallengeTTL time.Duration
}

// DefaultConfig mirrors the timings the game has always used.
func DefaultConfig() Config {
	return Config{
		DraftPickTimeout: 60 * time.Second,
		RoundPickTimeout: 200 * time.Second,
		ChallengeTTL:     5 * time.Minute,
	}
}

// Engine owns battle session lifecycles: the challenge/accept handshake,
// the draft, the five rounds, and terminal bookkeeping. One session
// advances through a strictly sequential pipeline of suspending waits;
// sessions of disjoint pairs run fully concurrently.
type Engine struct {
	registry  *Registry
	msgr      messenger.Messenger
	profiles  ProfileStore
	draft     *DraftCoordinator
	rounds    *RoundEngine
	publisher *Publisher
	cfg       Config
	logger    *zap.Logger
}

// NewEngine wires a battle engine from its collaborators.
func NewEngine(registry *Registry, msgr messenger.Messenger, profiles ProfileStore, publisher *Publisher, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		registry:  registry,
		msgr:      msgr,
		profiles:  profiles,
		draft:     NewDraftCoordinator(msgr, cfg.DraftPickTimeout, logger),
		rounds:    NewRoundEngine(msgr, cfg.RoundPickTimeout, logger),
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Challenge opens a battle session between two participants. Both must
// have a profile with at least three cards, and neither may already be
// in a battle. The initial three-card hands are sampled here.
func (e *Engine) Challenge(ctx context.Context, challengerID, opponentID string) (*Session, error) {
	if challengerID == opponentID {
		return nil, fmt.Errorf("%w: cannot battle yourself", ErrInvalidOpponent)
	}

	profA, err := e.profiles.GetProfile(ctx, challengerID)
	if err != nil {
		return nil, fmt.Errorf("challenger %s: %w", challengerID, ErrUnknownProfile)
	}
	profB, err := e.profiles.GetProfile(ctx, opponentID)
	if err != nil {
		return nil, fmt.Errorf("opponent %s: %w", opponentID, ErrUnknownProfile)
	}

	if len(profA.Cards) < initialHandSize || len(profB.Cards) < initialHandSize {
		return nil, ErrInsufficientCards
	}

	handA, err := card.NewHand(sampleCards(profA.Cards, initialHandSize)...)
	if err != nil {
		return nil, err
	}
	handB, err := card.NewHand(sampleCards(profB.Cards, initialHandSize)...)
	if err != nil {
		return nil, err
	}

	sess := NewSession(challengerID, opponentID, handA, handB)
	if err := e.registry.Open(sess); err != nil {
		return nil, err
	}

	e.msgr.Notify(ctx, opponentID,
		fmt.Sprintf("%s challenged you to a battle! Type !accept to join.", profA.Name))
	e.msgr.Notify(ctx, challengerID,
		fmt.Sprintf("Challenge sent to %s. Your starting cards:\n%s", profB.Name, handA.Summary()))
	e.msgr.Notify(ctx, opponentID,
		fmt.Sprintf("Your starting cards:\n%s", handB.Summary()))

	return sess, nil
}

// Accept moves a pending session into the draft and starts the battle
// pipeline on its own goroutine. Only the challenged participant may
// accept.
func (e *Engine) Accept(ctx context.Context, responderID string) (*Session, error) {
	sess, ok := e.registry.Lookup(responderID)
	if !ok || sess.Status() != StatusPendingAccept {
		return nil, ErrNoPendingBattle
	}
	if sess.OpponentID != responderID {
		return nil, ErrInvalidOpponent
	}

	// The swap is what authorizes this accept: a second accept from a
	// reconnected client loses the race here and cannot start a second
	// pipeline.
	if err := sess.transition(StatusPendingAccept, StatusDrafting, 0); err != nil {
		return nil, ErrNoPendingBattle
	}

	e.msgr.Notify(ctx, sess.ChallengerID, "Your challenge was accepted! Let the battle begin!")
	e.msgr.Notify(ctx, sess.OpponentID, "Battle accepted! Let the battle begin!")
	e.msgr.Notify(ctx, sess.ChallengerID, "Select two additional cards to complete your hand.")
	e.msgr.Notify(ctx, sess.OpponentID, "Select two additional cards to complete your hand.")

	// The session outlives the accept request; every wait inside the
	// pipeline carries its own deadline.
	go e.run(context.Background(), sess)

	return sess, nil
}

// run drives a session from Drafting to a terminal status.
func (e *Engine) run(ctx context.Context, sess *Session) {
	profA, errA := e.profiles.GetProfile(ctx, sess.ChallengerID)
	profB, errB := e.profiles.GetProfile(ctx, sess.OpponentID)
	if errA != nil || errB != nil {
		e.cancel(ctx, sess, StatusDrafting, "A participant's profile could not be loaded. The battle has been canceled.")
		return
	}

	if err := e.draft.Run(ctx, sess, profA.Cards, profB.Cards); err != nil {
		e.logger.Warn("draft failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		e.cancel(ctx, sess, StatusDrafting, "A player took too long to select their cards. The battle has been canceled.")
		return
	}

	for n := 1; n <= roundsPerBattle; n++ {
		from := StatusDrafting
		if n > 1 {
			from = StatusRoundInProgress
		}
		if err := sess.transition(from, StatusRoundInProgress, n); err != nil {
			return
		}
		if _, err := e.rounds.PlayRound(ctx, sess, n); err != nil {
			e.logger.Warn("round aborted",
				zap.String("session_id", sess.ID),
				zap.Int("round", n),
				zap.Error(err),
			)
			e.cancel(ctx, sess, StatusRoundInProgress, "A user took too long to select a card. The battle has been canceled.")
			return
		}
	}

	e.complete(ctx, sess)
}

// complete finalizes a session whose five rounds all resolved.
func (e *Engine) complete(ctx context.Context, sess *Session) {
	if err := sess.transition(StatusRoundInProgress, StatusComplete, 0); err != nil {
		return
	}

	scoreA, scoreB := sess.Scores()
	var verdict string
	switch {
	case scoreA > scoreB:
		verdict = fmt.Sprintf("The final winner is: %s with %d points!", sess.ChallengerID, scoreA)
	case scoreB > scoreA:
		verdict = fmt.Sprintf("The final winner is: %s with %d points!", sess.OpponentID, scoreB)
	default:
		verdict = "It's a draw! Both players have the same score."
	}

	e.msgr.Notify(ctx, sess.ChallengerID, verdict)
	e.msgr.Notify(ctx, sess.OpponentID, verdict)

	if err := e.publisher.Publish(ctx, sess); err != nil {
		e.logger.Error("failed to publish battle outcome",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		e.msgr.Notify(ctx, sess.ChallengerID, "Your battle result could not be saved.")
		e.msgr.Notify(ctx, sess.OpponentID, "Your battle result could not be saved.")
	}

	e.registry.Close(sess)

	e.logger.Info("battle complete",
		zap.String("session_id", sess.ID),
		zap.Int("score_a", scoreA),
		zap.Int("score_b", scoreB),
	)
}

// cancel terminates a session from the expected source state, tells
// both participants, and frees the registry slots. A session that moved
// on since the caller observed it loses the swap and stays untouched,
// so Close runs exactly once and a stale sweep cannot kill a battle an
// accept just started.
func (e *Engine) cancel(ctx context.Context, sess *Session, from Status, notice string) bool {
	if err := sess.transition(from, StatusCancelled, 0); err != nil {
		return false
	}

	e.msgr.Notify(ctx, sess.ChallengerID, notice)
	e.msgr.Notify(ctx, sess.OpponentID, notice)

	e.registry.Close(sess)

	e.logger.Info("battle cancelled",
		zap.String("session_id", sess.ID),
		zap.String("notice", notice),
	)
	return true
}

// CancelStale cancels challenges that sat unaccepted past the TTL. The
// scheduler calls this periodically.
func (e *Engine) CancelStale(ctx context.Context) int {
	cancelled := 0
	for _, sess := range e.registry.Sessions() {
		if sess.Status() == StatusPendingAccept && time.Since(sess.CreateTime) > e.cfg.ChallengeTTL {
			if e.cancel(ctx, sess, StatusPendingAccept, "The challenge expired before it was accepted.") {
				cancelled++
			}
		}
	}
	return cancelled
}

// sampleCards picks n distinct cards from the collection at random.
func sampleCards(cards []card.Card, n int) []card.Card {
	idx := rand.Perm(len(cards))
	out := make([]card.Card, 0, n)
	for _, i := range idx[:n] {
		out = append(out, cards[i])
	}
	return out
}
