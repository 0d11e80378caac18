// Package leaderboard computes battle standings. Rendering is left to
// the surface that displays them.
package leaderboard

import (
	"context"

	"github.com/beingsarangi/battle-server/internal/repository"
)

const maxNameLen = 15

// Entry is one standings row.
type Entry struct {
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	MatchesPlayed int    `json:"matches_played"`
}

// StandingsSource supplies profiles ordered by wins.
type StandingsSource interface {
	ListByWins(ctx context.Context) ([]repository.StandingsRow, error)
}

// Service ranks profiles by wins.
type Service struct {
	source StandingsSource
}

// NewService creates a leaderboard service.
func NewService(source StandingsSource) *Service {
	return &Service{source: source}
}

// Standings returns every profile ranked by wins, names truncated for
// display.
func (s *Service) Standings(ctx context.Context) ([]Entry, error) {
	rows, err := s.source.ListByWins(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		name := row.Name
		if runes := []rune(name); len(runes) > maxNameLen {
			name = string(runes[:maxNameLen])
		}
		entries = append(entries, Entry{
			Rank:          i + 1,
			Name:          name,
			Wins:          row.Wins,
			Losses:        row.Losses,
			MatchesPlayed: row.Wins + row.Losses,
		})
	}
	return entries, nil
}
