package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/beingsarangi/battle-server/internal/card"
)

// ErrPoolEmpty is returned when the shared card pool has no cards left.
var ErrPoolEmpty = errors.New("card pool is empty")

// PoolCard is a pool row: the card plus the row id used for removal.
type PoolCard struct {
	ID   int64
	Card card.Card
}

// CardPoolRepository persists the shared pool daily rolls draw from.
// Sold cards return here.
type CardPoolRepository struct {
	db *DB
}

// NewCardPoolRepository creates a card pool repository.
func NewCardPoolRepository(db *DB) *CardPoolRepository {
	return &CardPoolRepository{db: db}
}

// SampleRandom picks one random card from the pool without removing it.
func (r *CardPoolRepository) SampleRandom(ctx context.Context) (PoolCard, error) {
	var (
		pc       PoolCard
		rawStats []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, rating, price, stats, image_url
		 FROM card_pool ORDER BY random() LIMIT 1`,
	).Scan(&pc.ID, &pc.Card.Name, &pc.Card.Rating, &pc.Card.Price, &rawStats, &pc.Card.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return PoolCard{}, ErrPoolEmpty
	}
	if err != nil {
		return PoolCard{}, fmt.Errorf("sample card pool: %w", err)
	}
	if len(rawStats) > 0 {
		if err := json.Unmarshal(rawStats, &pc.Card.Stats); err != nil {
			return PoolCard{}, fmt.Errorf("decode stats for %s: %w", pc.Card.Name, err)
		}
	}
	return pc, nil
}

// Remove deletes a card from the pool once it has been handed out.
func (r *CardPoolRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM card_pool WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove pool card %d: %w", id, err)
	}
	return nil
}

// Insert returns a card to the pool, as when a player sells one.
func (r *CardPoolRepository) Insert(ctx context.Context, c card.Card) error {
	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return fmt.Errorf("encode stats for %s: %w", c.Name, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO card_pool (name, rating, price, stats, image_url)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.Name, c.Rating, c.Price, stats, c.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("insert pool card %s: %w", c.Name, err)
	}
	return nil
}
