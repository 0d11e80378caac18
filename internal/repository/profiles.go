package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/beingsarangi/battle-server/internal/battle"
	"github.com/beingsarangi/battle-server/internal/card"
)

// ErrProfileNotFound is returned when a user has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository persists participant profiles and their card
// collections. It implements battle.ProfileStore.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a profile repository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetProfile loads a profile with its card collection.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (*battle.Profile, error) {
	p := &battle.Profile{UserID: userID}

	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, points, wins, losses FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.Name, &p.Points, &p.Wins, &p.Losses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, rating, price, stats, image_url
		 FROM profile_cards WHERE user_id = $1 ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load cards for %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		p.Cards = append(p.Cards, c)
	}
	return p, rows.Err()
}

// Create inserts a fresh profile with zeroed counters.
func (r *ProfileRepository) Create(ctx context.Context, userID, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO profiles (user_id, name, points, wins, losses, roll_date, roll_count)
		 VALUES ($1, $2, 0, 0, 0, '', 0)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("create profile %s: %w", userID, err)
	}
	return nil
}

// AddPoints adjusts a profile's point total.
func (r *ProfileRepository) AddPoints(ctx context.Context, userID string, delta int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE profiles SET points = points + $2 WHERE user_id = $1`,
		userID, delta,
	)
	if err != nil {
		return fmt.Errorf("add points for %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// RecordResult bumps the winner's and loser's battle counters.
func (r *ProfileRepository) RecordResult(ctx context.Context, winnerID, loserID string) error {
	if _, err := r.db.Pool.Exec(ctx,
		`UPDATE profiles SET wins = wins + 1 WHERE user_id = $1`, winnerID); err != nil {
		return fmt.Errorf("record win for %s: %w", winnerID, err)
	}
	if _, err := r.db.Pool.Exec(ctx,
		`UPDATE profiles SET losses = losses + 1 WHERE user_id = $1`, loserID); err != nil {
		return fmt.Errorf("record loss for %s: %w", loserID, err)
	}
	return nil
}

// StandingsRow is one leaderboard entry as stored.
type StandingsRow struct {
	UserID string
	Name   string
	Wins   int
	Losses int
}

// ListByWins returns all profiles ordered by wins, descending.
func (r *ProfileRepository) ListByWins(ctx context.Context) ([]StandingsRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id, name, wins, losses FROM profiles ORDER BY wins DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	defer rows.Close()

	var out []StandingsRow
	for rows.Next() {
		var row StandingsRow
		if err := rows.Scan(&row.UserID, &row.Name, &row.Wins, &row.Losses); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AddCard appends a card to the user's collection.
func (r *ProfileRepository) AddCard(ctx context.Context, userID string, c card.Card) error {
	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return fmt.Errorf("encode stats for %s: %w", c.Name, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO profile_cards (user_id, name, rating, price, stats, image_url, position)
		 VALUES ($1, $2, $3, $4, $5, $6,
		   COALESCE((SELECT MAX(position) + 1 FROM profile_cards WHERE user_id = $1), 0))`,
		userID, c.Name, c.Rating, c.Price, stats, c.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("add card %s for %s: %w", c.Name, userID, err)
	}
	return nil
}

// RemoveCard deletes a card from the collection by name. It reports
// whether a card was removed.
func (r *ProfileRepository) RemoveCard(ctx context.Context, userID, name string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM profile_cards WHERE user_id = $1 AND LOWER(name) = LOWER($2)`,
		userID, name,
	)
	if err != nil {
		return false, fmt.Errorf("remove card %s for %s: %w", name, userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceCards swaps the whole collection, used by the daily roll's
// first draw of the day.
func (r *ProfileRepository) ReplaceCards(ctx context.Context, userID string, cards []card.Card) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace cards: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM profile_cards WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cards for %s: %w", userID, err)
	}

	for i, c := range cards {
		stats, err := json.Marshal(c.Stats)
		if err != nil {
			return fmt.Errorf("encode stats for %s: %w", c.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO profile_cards (user_id, name, rating, price, stats, image_url, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userID, c.Name, c.Rating, c.Price, stats, c.ImageURL, i,
		); err != nil {
			return fmt.Errorf("insert card %s for %s: %w", c.Name, userID, err)
		}
	}

	return tx.Commit(ctx)
}

// RollState reads the daily roll bookkeeping.
func (r *ProfileRepository) RollState(ctx context.Context, userID string) (date string, count int, err error) {
	err = r.db.Pool.QueryRow(ctx,
		`SELECT roll_date, roll_count FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&date, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrProfileNotFound
	}
	return date, count, err
}

// SetRollState writes the daily roll bookkeeping.
func (r *ProfileRepository) SetRollState(ctx context.Context, userID, date string, count int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE profiles SET roll_date = $2, roll_count = $3 WHERE user_id = $1`,
		userID, date, count,
	)
	if err != nil {
		return fmt.Errorf("set roll state for %s: %w", userID, err)
	}
	return nil
}

// scanCard decodes one card row: name, rating, price, stats jsonb,
// image_url.
func scanCard(row pgx.Row) (card.Card, error) {
	var (
		c        card.Card
		rawStats []byte
	)
	if err := row.Scan(&c.Name, &c.Rating, &c.Price, &rawStats, &c.ImageURL); err != nil {
		return card.Card{}, fmt.Errorf("scan card: %w", err)
	}
	if len(rawStats) > 0 {
		if err := json.Unmarshal(rawStats, &c.Stats); err != nil {
			return card.Card{}, fmt.Errorf("decode stats for %s: %w", c.Name, err)
		}
	}
	return c, nil
}
