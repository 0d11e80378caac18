package battle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/card"
	"github.com/beingsarangi/battle-server/internal/messenger"
)

// DraftCoordinator collects each participant's two supplemental picks,
// growing the initial 3-card hands to the 5 cards a battle needs. Both
// participants draft independently and concurrently; a single missed
// deadline fails the whole draft.
type DraftCoordinator struct {
	msgr        messenger.Messenger
	logger      *zap.Logger
	pickTimeout time.Duration
}

// NewDraftCoordinator creates a draft coordinator. pickTimeout bounds
// each individual selection, measured from its first prompt.
func NewDraftCoordinator(msgr messenger.Messenger, pickTimeout time.Duration, logger *zap.Logger) *DraftCoordinator {
	return &DraftCoordinator{
		msgr:        msgr,
		logger:      logger,
		pickTimeout: pickTimeout,
	}
}

// Run drafts both sides of the session. poolA and poolB are the
// participants' full pre-battle collections; eligible picks exclude
// cards already in the initial hand and prior picks from the same
// draft. On any timeout it returns an error wrapping ErrTimeout.
func (d *DraftCoordinator) Run(ctx context.Context, sess *Session, poolA, poolB []card.Card) error {
	type draftOutcome struct {
		userID string
		err    error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan draftOutcome, 2)
	go func() {
		results <- draftOutcome{sess.ChallengerID, d.draftParticipant(ctx, sess.ChallengerID, sess.Hand(sess.ChallengerID), poolA)}
	}()
	go func() {
		results <- draftOutcome{sess.OpponentID, d.draftParticipant(ctx, sess.OpponentID, sess.Hand(sess.OpponentID), poolB)}
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		out := <-results
		if out.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("draft for %s: %w", out.userID, out.err)
			// Release the other participant's pending wait.
			cancel()
		}
	}
	return firstErr
}

// draftParticipant walks one participant through their two picks.
func (d *DraftCoordinator) draftParticipant(ctx context.Context, userID string, hand *card.Hand, pool []card.Card) error {
	eligible := make([]card.Card, 0, len(pool))
	for _, c := range pool {
		if !hand.Contains(c.Name) {
			eligible = append(eligible, c)
		}
	}

	names := make([]string, len(eligible))
	for i, c := range eligible {
		names[i] = c.Name
	}
	d.msgr.Notify(ctx, userID,
		fmt.Sprintf("Select two additional cards from the following: %s", strings.Join(names, ", ")))

	for pick := 0; pick < draftPicks; pick++ {
		d.msgr.Notify(ctx, userID, "Type the name of the card you want to select:")

		filter := func(text string) bool {
			name := strings.TrimSpace(text)
			idx := findCard(eligible, name)
			if idx < 0 {
				d.msgr.Notify(ctx, userID, "Invalid or duplicate card selected. Please try again.")
				return false
			}
			return true
		}

		reply, err := d.msgr.AwaitReply(ctx, userID, filter, d.pickTimeout)
		if err != nil {
			if errors.Is(err, messenger.ErrReplyTimeout) {
				d.msgr.Notify(ctx, userID, "You took too long to select your cards.")
				return fmt.Errorf("draft pick %d: %w", pick+1, ErrTimeout)
			}
			return err
		}

		idx := findCard(eligible, strings.TrimSpace(reply))
		picked := eligible[idx]
		eligible = append(eligible[:idx], eligible[idx+1:]...)

		if err := hand.Add(picked); err != nil {
			return err
		}

		d.msgr.Notify(ctx, userID, fmt.Sprintf("Added to your hand: %s", picked.Summary()))
		d.logger.Debug("draft pick accepted",
			zap.String("user_id", userID),
			zap.String("card", picked.Name),
			zap.Int("pick", pick+1),
		)
	}

	return nil
}

// findCard locates a card by name in a slice, case-insensitively.
func findCard(cards []card.Card, name string) int {
	for i, c := range cards {
		if c.SameName(name) {
			return i
		}
	}
	return -1
}
