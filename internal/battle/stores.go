package battle

import (
	"context"

	"github.com/beingsarangi/battle-server/internal/card"
)

// Profile is the persisted view of a participant the battle core needs:
// identity, point total, win/loss counters, and the pre-battle card
// collection that seeds hands and draft pools.
type Profile struct {
	UserID string
	Name   string
	Points int
	Wins   int
	Losses int
	Cards  []card.Card
}

// ProfileStore is the external profile collaborator. Point totals are
// mutated only by the outcome publisher, under the store's own upsert
// semantics.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	AddPoints(ctx context.Context, userID string, delta int) error
	RecordResult(ctx context.Context, winnerID, loserID string) error
}
