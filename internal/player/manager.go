// Package player covers the profile-facing features around battles:
// daily card rolls, the team view, and selling cards back to the pool.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/battle"
	"github.com/beingsarangi/battle-server/internal/card"
	"github.com/beingsarangi/battle-server/internal/repository"
)

var (
	// ErrDailyLimit means the user already drew both daily cards.
	ErrDailyLimit = errors.New("daily cards already taken")

	// ErrCardNotOwned means the user tried to sell a card they do not
	// hold.
	ErrCardNotOwned = errors.New("card not owned")

	// ErrPoolEmpty mirrors the repository condition for callers that do
	// not want to import repository.
	ErrPoolEmpty = repository.ErrPoolEmpty
)

// ProfileRepo is the slice of the profile repository the manager needs.
type ProfileRepo interface {
	GetProfile(ctx context.Context, userID string) (*battle.Profile, error)
	Create(ctx context.Context, userID, name string) error
	AddPoints(ctx context.Context, userID string, delta int) error
	AddCard(ctx context.Context, userID string, c card.Card) error
	RemoveCard(ctx context.Context, userID, name string) (bool, error)
	ReplaceCards(ctx context.Context, userID string, cards []card.Card) error
	RollState(ctx context.Context, userID string) (string, int, error)
	SetRollState(ctx context.Context, userID, date string, count int) error
}

// PoolRepo is the slice of the card pool repository the manager needs.
type PoolRepo interface {
	SampleRandom(ctx context.Context) (repository.PoolCard, error)
	Remove(ctx context.Context, id int64) error
	Insert(ctx context.Context, c card.Card) error
}

// Manager implements the daily distribution and collection commands.
type Manager struct {
	profiles ProfileRepo
	pool     PoolRepo
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a player manager.
func NewManager(profiles ProfileRepo, pool PoolRepo, logger *zap.Logger) *Manager {
	return &Manager{
		profiles: profiles,
		pool:     pool,
		logger:   logger,
		now:      time.Now,
	}
}

// Roll hands out one daily card, up to two per day. The first roll of a
// day replaces the collection with the drawn card; the second appends.
// Rolled cards leave the shared pool. A profile is created on first
// contact.
func (m *Manager) Roll(ctx context.Context, userID, displayName string) (card.Card, int, error) {
	date, count, err := m.profiles.RollState(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		if err := m.profiles.Create(ctx, userID, displayName); err != nil {
			return card.Card{}, 0, err
		}
		date, count = "", 0
	} else if err != nil {
		return card.Card{}, 0, err
	}

	today := m.now().Format("2006-01-02")
	if date != today {
		count = 0
	}
	if count >= 2 {
		return card.Card{}, 0, ErrDailyLimit
	}

	drawn, err := m.pool.SampleRandom(ctx)
	if err != nil {
		return card.Card{}, 0, err
	}

	if count == 0 {
		err = m.profiles.ReplaceCards(ctx, userID, []card.Card{drawn.Card})
	} else {
		err = m.profiles.AddCard(ctx, userID, drawn.Card)
	}
	if err != nil {
		return card.Card{}, 0, err
	}

	if err := m.pool.Remove(ctx, drawn.ID); err != nil {
		return card.Card{}, 0, err
	}
	if err := m.profiles.SetRollState(ctx, userID, today, count+1); err != nil {
		return card.Card{}, 0, err
	}

	m.logger.Info("daily card rolled",
		zap.String("user_id", userID),
		zap.String("card", drawn.Card.Name),
		zap.Int("roll", count+1),
	)
	return drawn.Card, count + 1, nil
}

// Team returns the user's profile with their collection.
func (m *Manager) Team(ctx context.Context, userID string) (*battle.Profile, error) {
	return m.profiles.GetProfile(ctx, userID)
}

// Sell removes a named card from the user's collection, credits its
// price as points, and returns the card to the shared pool. It returns
// the credited amount and the new point total.
func (m *Manager) Sell(ctx context.Context, userID, cardName string) (int, int, error) {
	prof, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	var sold *card.Card
	for i := range prof.Cards {
		if prof.Cards[i].SameName(cardName) {
			sold = &prof.Cards[i]
			break
		}
	}
	if sold == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrCardNotOwned, cardName)
	}

	removed, err := m.profiles.RemoveCard(ctx, userID, sold.Name)
	if err != nil {
		return 0, 0, err
	}
	if !removed {
		return 0, 0, fmt.Errorf("%w: %s", ErrCardNotOwned, cardName)
	}

	if err := m.profiles.AddPoints(ctx, userID, sold.Price); err != nil {
		return 0, 0, err
	}
	if err := m.pool.Insert(ctx, *sold); err != nil {
		return 0, 0, err
	}

	m.logger.Info("card sold",
		zap.String("user_id", userID),
		zap.String("card", sold.Name),
		zap.Int("price", sold.Price),
	)
	return sold.Price, prof.Points + sold.Price, nil
}
