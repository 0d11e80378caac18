package battle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// winnerBonus is the fixed point award for winning a battle.
const winnerBonus = 5

// Publisher applies a completed session's outcome to the persisted
// profiles: the winner gets the fixed bonus and a win, the loser a loss.
// Draws award nothing. Publishing the same session twice is a no-op.
type Publisher struct {
	profiles ProfileStore
	logger   *zap.Logger
}

// NewPublisher creates an outcome publisher over the profile store.
func NewPublisher(profiles ProfileStore, logger *zap.Logger) *Publisher {
	return &Publisher{profiles: profiles, logger: logger}
}

// Publish awards the winner and records the result. The session's
// publish guard makes repeat calls inert, so points are never awarded
// twice for one battle.
func (p *Publisher) Publish(ctx context.Context, sess *Session) error {
	if !sess.markPublished() {
		p.logger.Debug("outcome already published", zap.String("session_id", sess.ID))
		return nil
	}

	scoreA, scoreB := sess.Scores()
	if scoreA == scoreB {
		p.logger.Info("battle drawn, no award",
			zap.String("session_id", sess.ID),
			zap.Int("score", scoreA),
		)
		return nil
	}

	winnerID, loserID := sess.ChallengerID, sess.OpponentID
	if scoreB > scoreA {
		winnerID, loserID = sess.OpponentID, sess.ChallengerID
	}

	if err := p.profiles.AddPoints(ctx, winnerID, winnerBonus); err != nil {
		return fmt.Errorf("award points to %s: %w", winnerID, err)
	}
	if err := p.profiles.RecordResult(ctx, winnerID, loserID); err != nil {
		return fmt.Errorf("record result for %s: %w", sess.ID, err)
	}

	p.logger.Info("battle outcome published",
		zap.String("session_id", sess.ID),
		zap.String("winner", winnerID),
		zap.Int("bonus", winnerBonus),
	)
	return nil
}
