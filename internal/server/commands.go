package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/beingsarangi/battle-server/internal/battle"
	"github.com/beingsarangi/battle-server/internal/leaderboard"
	"github.com/beingsarangi/battle-server/internal/messenger"
	"github.com/beingsarangi/battle-server/internal/player"
	"github.com/beingsarangi/battle-server/internal/repository"
)

const commandPrefix = "!"

// Dispatcher maps chat commands onto the battle engine and the profile
// features.
type Dispatcher struct {
	engine   *battle.Engine
	players  *player.Manager
	board    *leaderboard.Service
	notifier messenger.Notifier
	logger   *zap.Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(engine *battle.Engine, players *player.Manager, board *leaderboard.Service, notifier messenger.Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		players:  players,
		board:    board,
		notifier: notifier,
		logger:   logger,
	}
}

// IsCommand reports whether the line is a command rather than a battle
// reply.
func (d *Dispatcher) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), commandPrefix)
}

// Dispatch executes one command line on behalf of a participant.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, name, line string) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], commandPrefix))
	args := fields[1:]

	switch cmd {
	case "roll":
		d.roll(ctx, userID, name)
	case "battle":
		d.battle(ctx, userID, args)
	case "accept":
		d.accept(ctx, userID)
	case "team":
		d.team(ctx, userID)
	case "sell":
		d.sell(ctx, userID, strings.Join(args, " "))
	case "battlestats":
		d.battlestats(ctx, userID)
	default:
		d.notifier.Notify(ctx, userID, fmt.Sprintf("Unknown command: %s", cmd))
	}
}

func (d *Dispatcher) roll(ctx context.Context, userID, name string) {
	drawn, n, err := d.players.Roll(ctx, userID, name)
	switch {
	case errors.Is(err, player.ErrDailyLimit):
		d.notifier.Notify(ctx, userID, "You've already received your cards today.")
	case errors.Is(err, repository.ErrPoolEmpty):
		d.notifier.Notify(ctx, userID, "No cards are available at the moment. Please try again later.")
	case err != nil:
		d.fail(ctx, userID, "roll", err)
	default:
		ordinal := "first"
		if n == 2 {
			ordinal = "second"
		}
		d.notifier.Notify(ctx, userID,
			fmt.Sprintf("Here is your %s card for today:\n%s", ordinal, drawn.Summary()))
	}
}

func (d *Dispatcher) battle(ctx context.Context, userID string, args []string) {
	if len(args) != 1 {
		d.notifier.Notify(ctx, userID, "Usage: !battle @opponent")
		return
	}
	opponentID := strings.TrimPrefix(args[0], "@")

	_, err := d.engine.Challenge(ctx, userID, opponentID)
	switch {
	case errors.Is(err, battle.ErrAlreadyInBattle):
		d.notifier.Notify(ctx, userID, "One of you is already in a battle.")
	case errors.Is(err, battle.ErrInsufficientCards):
		d.notifier.Notify(ctx, userID, "One of the players doesn't have enough cards to battle! Both players need at least 3 cards.")
	case errors.Is(err, battle.ErrUnknownProfile):
		d.notifier.Notify(ctx, userID, "One or both players don't exist in the system.")
	case errors.Is(err, battle.ErrInvalidOpponent):
		d.notifier.Notify(ctx, userID, "You can't battle yourself.")
	case err != nil:
		d.fail(ctx, userID, "battle", err)
	}
}

func (d *Dispatcher) accept(ctx context.Context, userID string) {
	_, err := d.engine.Accept(ctx, userID)
	switch {
	case errors.Is(err, battle.ErrNoPendingBattle), errors.Is(err, battle.ErrInvalidOpponent):
		d.notifier.Notify(ctx, userID, "No pending battle found for you to accept.")
	case err != nil:
		d.fail(ctx, userID, "accept", err)
	}
}

func (d *Dispatcher) team(ctx context.Context, userID string) {
	prof, err := d.players.Team(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		d.notifier.Notify(ctx, userID, "You have no data yet. Please get your cards first.")
		return
	}
	if err != nil {
		d.fail(ctx, userID, "team", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Points: %d\n", prof.Points)
	if len(prof.Cards) == 0 {
		b.WriteString("You don't have any cards yet. Earn or buy cards to build your team.")
	} else {
		for _, c := range prof.Cards {
			b.WriteString(c.Summary())
			b.WriteByte('\n')
		}
	}
	d.notifier.Notify(ctx, userID, strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) sell(ctx context.Context, userID, cardName string) {
	if cardName == "" {
		d.notifier.Notify(ctx, userID, "Usage: !sell <card name>")
		return
	}

	price, total, err := d.players.Sell(ctx, userID, cardName)
	switch {
	case errors.Is(err, player.ErrCardNotOwned):
		d.notifier.Notify(ctx, userID, fmt.Sprintf("You don't own a card named '%s'.", cardName))
	case errors.Is(err, repository.ErrProfileNotFound):
		d.notifier.Notify(ctx, userID, "You do not have an account in the system.")
	case err != nil:
		d.fail(ctx, userID, "sell", err)
	default:
		d.notifier.Notify(ctx, userID,
			fmt.Sprintf("You sold '%s' for %d points! Your new points total is %d.", cardName, price, total))
	}
}

func (d *Dispatcher) battlestats(ctx context.Context, userID string) {
	entries, err := d.board.Standings(ctx)
	if err != nil {
		d.fail(ctx, userID, "battlestats", err)
		return
	}

	var b strings.Builder
	b.WriteString("Battle Stats Leaderboard\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s - %dW %dL %dMP\n", e.Rank, e.Name, e.Wins, e.Losses, e.MatchesPlayed)
	}
	d.notifier.Notify(ctx, userID, strings.TrimRight(b.String(), "\n"))
}

func (d *Dispatcher) fail(ctx context.Context, userID, cmd string, err error) {
	d.logger.Error("command failed",
		zap.String("command", cmd),
		zap.String("user_id", userID),
		zap.Error(err),
	)
	d.notifier.Notify(ctx, userID, "An unexpected error occurred. Please try again.")
}
