// Package numberguess is the number guessing game: find a secret number in a
// range with a limited number of attempts.
package numberguess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/dependencies/clock"
	"github.com/mcoot/archive/internal/dependencies/random"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/services/scoring"
)

// ID is the catalog key of the game
const ID model.GameID = "number_guessing"

// Bounds are the parameters a difficulty tier maps to
type Bounds struct {
	Min         int
	Max         int
	MaxAttempts int
}

// BoundsFor returns the parameters for d. Unknown tiers use Medium's.
func BoundsFor(d model.Difficulty) Bounds {
	switch d.Normalize() {
	case model.DifficultyEasy:
		return Bounds{Min: 1, Max: 50, MaxAttempts: 10}
	case model.DifficultyHard:
		return Bounds{Min: 1, Max: 200, MaxAttempts: 5}
	default:
		return Bounds{Min: 1, Max: 100, MaxAttempts: 7}
	}
}

// Game implements games.Variant
type Game struct {
	clock   clock.Clock
	random  random.Random
	console games.Console
	logger  *slog.Logger

	bounds  Bounds
	secret  int
	guesses []int
}

var _ games.Variant = (*Game)(nil)

// New creates the variant
func New(deps games.Deps) (games.Variant, error) {
	if deps.Console == nil {
		return nil, errors.New("number guessing needs a console")
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Random == nil {
		deps.Random = random.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Game{
		clock:   deps.Clock,
		random:  deps.Random,
		console: deps.Console,
		logger:  logger,
	}, nil
}

func (n *Game) Info() model.GameInfo {
	return model.GameInfo{
		ID:          ID,
		Name:        "Number Guessing Game",
		Description: "Guess the secret number within the given range and attempts",
		Difficulty:  model.DifficultyMedium,
	}
}

func (n *Game) ConfigureDifficulty(g *games.Game) {
	n.bounds = BoundsFor(g.Difficulty())
	g.TrackProgress("difficulty_settings", map[string]any{
		"min_number":   n.bounds.Min,
		"max_number":   n.bounds.Max,
		"max_attempts": n.bounds.MaxAttempts,
	})
}

func (n *Game) Setup(g *games.Game) error {
	n.guesses = nil
	n.secret = random.Between(n.random, n.bounds.Min, n.bounds.Max)

	g.TrackProgress("range", fmt.Sprintf("%d-%d", n.bounds.Min, n.bounds.Max))
	g.TrackProgress("max_attempts", n.bounds.MaxAttempts)
	return nil
}

func (n *Game) Run(ctx context.Context, g *games.Game) (games.Outcome, error) {
	n.welcome(g)

	for g.AttemptsMade() < n.bounds.MaxAttempts {
		guess, quit, err := n.readGuess(ctx, g)
		if err != nil {
			return games.OutcomeErrored, err
		}
		if quit {
			n.quit(g)
			return games.OutcomeQuit, nil
		}

		switch {
		case guess < n.secret:
			n.console.Warn("Too low! Try a higher number.")
		case guess > n.secret:
			n.console.Warn("Too high! Try a lower number.")
		default:
			return n.victory(g)
		}
	}

	n.defeat(g)
	return games.OutcomeLost, nil
}

func (n *Game) Cleanup() {
	n.guesses = nil
}

func (n *Game) welcome(g *games.Game) {
	n.console.Panel("NUMBER GUESSING GAME",
		fmt.Sprintf("I'm thinking of a number between %d and %d.\nYou have %d attempts to guess it correctly.\nDifficulty: %s",
			n.bounds.Min, n.bounds.Max, n.bounds.MaxAttempts, g.Difficulty()),
		console.ToneGood)
}

// readGuess prompts until a valid in-range guess or a confirmed quit.
// Invalid input does not use up an attempt.
func (n *Game) readGuess(ctx context.Context, g *games.Game) (guess int, quit bool, err error) {
	attempt := g.AttemptsMade() + 1
	label := fmt.Sprintf("Attempt %d/%d: Enter your guess (or 'q' to quit)", attempt, n.bounds.MaxAttempts)
	started := n.clock.Now()

	for {
		input, err := n.console.Prompt(ctx, label)
		switch {
		case errors.Is(err, console.ErrInterrupted):
			n.console.Warn("Game interrupted. Would you like to quit?")
			confirmed, err := n.confirmQuit(ctx)
			if err != nil {
				return 0, false, err
			}
			if confirmed {
				return 0, true, nil
			}
			started = n.clock.Now()
			continue
		case err != nil:
			return 0, false, err
		}

		if strings.EqualFold(input, "q") {
			confirmed, err := n.confirmQuit(ctx)
			if err != nil {
				return 0, false, err
			}
			if confirmed {
				return 0, true, nil
			}
			started = n.clock.Now()
			continue
		}

		value, convErr := strconv.Atoi(input)
		if convErr != nil {
			n.console.Error("Please enter a valid number.")
			continue
		}
		if value < n.bounds.Min || value > n.bounds.Max {
			n.console.Error("Please enter a number between %d and %d.", n.bounds.Min, n.bounds.Max)
			continue
		}

		n.guesses = append(n.guesses, value)
		g.TrackProgress(fmt.Sprintf("guess_%d", attempt), map[string]any{
			"value":      value,
			"time_taken": roundSeconds(n.clock.Since(started)),
		})
		g.RecordAttempt()
		return value, false, nil
	}
}

// confirmQuit asks before quitting. A second Ctrl+C counts as yes.
func (n *Game) confirmQuit(ctx context.Context) (bool, error) {
	n.console.Warn("Are you sure you want to quit the game?")
	confirmed, err := n.console.Confirm(ctx, "Quit game?", false)
	if errors.Is(err, console.ErrInterrupted) {
		return true, nil
	}
	return confirmed, err
}

func (n *Game) victory(g *games.Game) (games.Outcome, error) {
	attemptsUsed := g.AttemptsMade()
	score, err := scoring.Score(scoring.Input{
		AttemptsUsed: attemptsUsed,
		MaxAttempts:  n.bounds.MaxAttempts,
		MinNumber:    n.bounds.Min,
		MaxNumber:    n.bounds.Max,
		Difficulty:   g.Difficulty(),
		Won:          true,
	})
	if err != nil {
		return games.OutcomeErrored, fmt.Errorf("score: %w", err)
	}

	g.UpdateScore(score - g.Score())
	g.TrackProgress("attempts_used", attemptsUsed)
	g.TrackProgress("success", true)

	n.console.Panel("Congratulations!",
		fmt.Sprintf("You guessed the correct number %d in %d attempts.\nYour score: %d points",
			n.secret, attemptsUsed, score),
		console.ToneGood)
	return games.OutcomeWon, nil
}

func (n *Game) defeat(g *games.Game) {
	g.TrackProgress("attempts_used", n.bounds.MaxAttempts)
	g.TrackProgress("success", false)

	n.console.Panel("Game Over",
		fmt.Sprintf("You've used all %d attempts.\nThe secret number was %d.", n.bounds.MaxAttempts, n.secret),
		console.ToneBad)
}

func (n *Game) quit(g *games.Game) {
	g.TrackProgress("quit_early", true)
	g.TrackProgress("attempts_before_quit", len(n.guesses))

	n.console.Panel("Game ended early",
		fmt.Sprintf("You used %d out of %d attempts.\nThe secret number was %d.",
			len(n.guesses), n.bounds.MaxAttempts, n.secret),
		console.ToneNotice)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
