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

// RoundEngine runs one comparison round: reveal hands, take the
// challenger's card+stat pick, take the opponent's card pick, compare
// the stat, remove the played cards, record the winner.
type RoundEngine struct {
	msgr        messenger.Messenger
	logger      *zap.Logger
	pickTimeout time.Duration
}

// NewRoundEngine creates a round engine. pickTimeout bounds each
// participant's selection, measured from its first prompt.
func NewRoundEngine(msgr messenger.Messenger, pickTimeout time.Duration, logger *zap.Logger) *RoundEngine {
	return &RoundEngine{
		msgr:        msgr,
		logger:      logger,
		pickTimeout: pickTimeout,
	}
}

// PlayRound executes round n for the session. The challenger always
// picks first; the opponent inherits the chosen stat. On timeout it
// returns an error wrapping ErrTimeout and leaves the hands untouched.
func (r *RoundEngine) PlayRound(ctx context.Context, sess *Session, n int) (RoundResult, error) {
	userA, userB := sess.Participants()
	handA := sess.Hand(userA)
	handB := sess.Hand(userB)

	r.msgr.Notify(ctx, userA, fmt.Sprintf("Round %d begins!", n))
	r.msgr.Notify(ctx, userB, fmt.Sprintf("Round %d begins!", n))

	// Each hand is revealed to its owner only.
	r.msgr.Notify(ctx, userA,
		fmt.Sprintf("Choose a card and a stat (Rating, APPS, AGR, SV, G/A, TW):\n%s", handA.Summary()))
	r.msgr.Notify(ctx, userB,
		fmt.Sprintf("Choose a card (your opponent's stat will be used for comparison):\n%s", handB.Summary()))

	cardA, stat, err := r.awaitChallengerPick(ctx, userA, handA)
	if err != nil {
		return RoundResult{}, fmt.Errorf("round %d: %w", n, err)
	}

	r.msgr.Notify(ctx, userB, fmt.Sprintf("Opponent played: %s", cardA.Summary()))

	cardB, err := r.awaitOpponentPick(ctx, userB, handB)
	if err != nil {
		return RoundResult{}, fmt.Errorf("round %d: %w", n, err)
	}

	r.msgr.Notify(ctx, userA, fmt.Sprintf("Opponent played: %s", cardB.Summary()))

	// Missing stat values count as 0. Strictly greater wins; a tie goes
	// to the opponent, matching the established house rule.
	winnerID := userB
	if cardA.Stat(stat) > cardB.Stat(stat) {
		winnerID = userA
	}

	handA.Remove(cardA.Name)
	handB.Remove(cardB.Name)

	res := RoundResult{
		Number:   n,
		WinnerID: winnerID,
		Stat:     stat,
		CardA:    cardA,
		CardB:    cardB,
	}
	sess.recordResult(res)

	r.msgr.Notify(ctx, userA, fmt.Sprintf("Round %d winner: %s", n, winnerID))
	r.msgr.Notify(ctx, userB, fmt.Sprintf("Round %d winner: %s", n, winnerID))

	r.logger.Info("round resolved",
		zap.String("session_id", sess.ID),
		zap.Int("round", n),
		zap.String("winner", winnerID),
		zap.String("stat", stat),
		zap.Float64("value_a", cardA.Stat(stat)),
		zap.Float64("value_b", cardB.Stat(stat)),
	)
	return res, nil
}

// awaitChallengerPick suspends for a "<card name> <stat>" reply. Card
// names may be one or two words; the stat is always the last token.
func (r *RoundEngine) awaitChallengerPick(ctx context.Context, userID string, hand *card.Hand) (card.Card, string, error) {
	filter := func(text string) bool {
		if _, _, ok := parseCardStat(text, hand); ok {
			return true
		}
		r.msgr.Notify(ctx, userID,
			"Invalid input! Please enter the card name followed by the stat (e.g., 'Alexander Isak rating').")
		return false
	}

	reply, err := r.msgr.AwaitReply(ctx, userID, filter, r.pickTimeout)
	if err != nil {
		return card.Card{}, "", wrapWaitErr(err)
	}

	name, stat, _ := parseCardStat(reply, hand)
	picked, _ := hand.Get(name)
	return picked, stat, nil
}

// awaitOpponentPick suspends for a bare card-name reply.
func (r *RoundEngine) awaitOpponentPick(ctx context.Context, userID string, hand *card.Hand) (card.Card, error) {
	filter := func(text string) bool {
		if hand.Contains(strings.TrimSpace(text)) {
			return true
		}
		r.msgr.Notify(ctx, userID,
			"Invalid input! Please enter the card name (e.g., 'Bruno Guimaraes').")
		return false
	}

	reply, err := r.msgr.AwaitReply(ctx, userID, filter, r.pickTimeout)
	if err != nil {
		return card.Card{}, wrapWaitErr(err)
	}

	picked, _ := hand.Get(strings.TrimSpace(reply))
	return picked, nil
}

// parseCardStat splits a round reply into card name and stat. The reply
// must be two or three words: the last token is the stat, the rest is
// the card name, which must be in the hand.
func parseCardStat(text string, hand *card.Hand) (name, stat string, ok bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 && len(parts) != 3 {
		return "", "", false
	}

	stat = card.CanonicalStat(parts[len(parts)-1])
	if !card.ValidStat(stat) {
		return "", "", false
	}

	name = strings.Join(parts[:len(parts)-1], " ")
	if !hand.Contains(name) {
		return "", "", false
	}
	return name, stat, true
}

func wrapWaitErr(err error) error {
	if errors.Is(err, messenger.ErrReplyTimeout) {
		return ErrTimeout
	}
	return err
}
