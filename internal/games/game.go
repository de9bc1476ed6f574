// Package games defines the contract every playable game implements and the
// lifecycle that wraps a play in a tracked session.
package games

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/dependencies/clock"
	"github.com/mcoot/archive/internal/dependencies/random"
	"github.com/mcoot/archive/internal/model"
)

// Outcome is the terminal state of one play
type Outcome int

const (
	OutcomeWon Outcome = iota
	OutcomeLost
	OutcomeQuit
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	case OutcomeQuit:
		return "quit"
	case OutcomeErrored:
		return "errored"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Completed reports whether the play ran to a natural end. A loss counts.
func (o Outcome) Completed() bool {
	return o == OutcomeWon || o == OutcomeLost
}

// Tracker records a play as a game session. Satisfied by *tracker.Tracker.
type Tracker interface {
	StartSession(ctx context.Context, userID model.UserID, gameID model.GameID, difficulty model.Difficulty) (model.SessionID, error)
	EndSession(ctx context.Context, score int, completed bool, data model.SessionData) (bool, error)
	UpdateSessionData(key string, value any) bool
}

// Console is the terminal a variant talks to the player through
type Console interface {
	// Prompt reads one line. Returns console.ErrInterrupted on Ctrl+C.
	Prompt(ctx context.Context, label string) (string, error)
	// Confirm asks a yes/no question
	Confirm(ctx context.Context, question string, defaultYes bool) (bool, error)
	Title(text string)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Success(format string, args ...any)
	Panel(heading, body string, tone console.Tone)
}

// Deps are the collaborators handed to variant constructors
type Deps struct {
	Clock   clock.Clock
	Random  random.Random
	Console Console
	Logger  *slog.Logger
}

// Variant is one playable game
type Variant interface {
	// Info returns the static description. Difficulty is the variant's default.
	Info() model.GameInfo
	// ConfigureDifficulty derives the variant's parameters from g.Difficulty().
	// Unknown tiers fall back to the middle tier.
	ConfigureDifficulty(g *Game)
	// Setup prepares per-play state
	Setup(g *Game) error
	// Run plays until a terminal outcome
	Run(ctx context.Context, g *Game) (Outcome, error)
	// Cleanup releases per-play resources after Stop
	Cleanup()
}

// Result is what a finished play reports to the menu
type Result struct {
	Outcome   Outcome
	Score     int
	SessionID model.SessionID // zero when the play was untracked
	Err       error           // set when Outcome is OutcomeErrored
}

// Game owns the lifecycle of a variant across plays
type Game struct {
	variant Variant
	info    model.GameInfo
	logger  *slog.Logger

	difficulty model.Difficulty

	// Per-play state, reset by Start
	tracker   Tracker
	sessionID model.SessionID
	score     int
	attempts  int
	running   bool
	stopped   bool
}

// New wraps a variant at its default difficulty
func New(variant Variant, logger *slog.Logger) *Game {
	info := variant.Info()
	return &Game{
		variant:    variant,
		info:       info,
		logger:     logger.With("game_id", info.ID),
		difficulty: info.Difficulty.Normalize(),
	}
}

// Info returns the game's description with the current difficulty
func (g *Game) Info() model.GameInfo {
	info := g.info
	info.Difficulty = g.difficulty
	return info
}

func (g *Game) ID() model.GameID {
	return g.info.ID
}

func (g *Game) Difficulty() model.Difficulty {
	return g.difficulty
}

// SetDifficulty changes the tier for subsequent plays. Unknown tiers become
// the middle tier.
func (g *Game) SetDifficulty(d model.Difficulty) {
	if !d.IsValid() {
		g.logger.Warn("unknown difficulty, using default", "difficulty", d, "default", model.DefaultDifficulty)
	}
	g.difficulty = d.Normalize()
}

func (g *Game) Score() int {
	return g.score
}

func (g *Game) AttemptsMade() int {
	return g.attempts
}

func (g *Game) IsRunning() bool {
	return g.running
}

// Tracking reports whether the current play has an open session
func (g *Game) Tracking() bool {
	return g.tracker != nil
}

// Start plays the game once for userID. When tracker is non-nil the play is
// recorded as a session; if the session cannot be opened the play continues
// untracked. Every outcome, including errors and panics in the variant, ends
// in exactly one call to Stop.
func (g *Game) Start(ctx context.Context, userID model.UserID, tracker Tracker) Result {
	g.score = 0
	g.attempts = 0
	g.running = true
	g.stopped = false
	g.tracker = nil
	g.sessionID = 0

	if tracker != nil {
		id, err := tracker.StartSession(ctx, userID, g.info.ID, g.difficulty)
		if err != nil {
			g.logger.Warn("session tracking unavailable, playing untracked",
				"user_id", userID,
				"error", err)
		} else {
			g.tracker = tracker
			g.sessionID = id
		}
	}

	outcome, err := g.play(ctx)

	var data model.SessionData
	if err != nil {
		outcome = OutcomeErrored
		data = model.SessionData{"error": err.Error()}
		g.logger.Error("game terminated early", "user_id", userID, "error", err)
	}

	// Close the session even when ctx was cancelled
	score := g.Stop(context.WithoutCancel(ctx), outcome.Completed(), data)

	g.logger.Info("game finished",
		"user_id", userID,
		"outcome", outcome.String(),
		"score", score,
		"difficulty", g.difficulty)

	return Result{
		Outcome:   outcome,
		Score:     score,
		SessionID: g.sessionID,
		Err:       err,
	}
}

// play runs configure, setup and run in order, converting panics into errors
func (g *Game) play(ctx context.Context) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic in game",
				"panic", r,
				"stack", string(debug.Stack()))
			outcome = OutcomeErrored
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	g.variant.ConfigureDifficulty(g)

	if err := g.variant.Setup(g); err != nil {
		return OutcomeErrored, fmt.Errorf("setup: %w", err)
	}

	// A finished outcome stands even if ctx was cancelled meanwhile
	outcome, err = g.variant.Run(ctx, g)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return OutcomeErrored, err
	}
	return outcome, nil
}

// Stop closes the open session with the current score, runs the variant's
// cleanup and returns the final score. Calls after the first are no-ops.
// A failure to close the session is logged; the score is still returned.
func (g *Game) Stop(ctx context.Context, completed bool, data model.SessionData) int {
	if g.stopped {
		return g.score
	}
	g.stopped = true

	if g.tracker != nil {
		ended, err := g.tracker.EndSession(ctx, g.score, completed, data)
		switch {
		case err != nil:
			g.logger.Error("failed to close game session", "session_id", g.sessionID, "error", err)
		case !ended:
			g.logger.Warn("game session was not closed", "session_id", g.sessionID)
		}
		g.tracker = nil
	}

	g.running = false
	g.variant.Cleanup()
	return g.score
}

// UpdateScore adds points (possibly negative) to the score and mirrors the
// new total into the session telemetry
func (g *Game) UpdateScore(points int) int {
	g.score += points
	g.TrackProgress("score", g.score)
	return g.score
}

// TrackProgress records a telemetry value when the play is tracked
func (g *Game) TrackProgress(key string, value any) {
	if g.tracker != nil {
		g.tracker.UpdateSessionData(key, value)
	}
}

// RecordAttempt counts one accepted attempt and returns the new total
func (g *Game) RecordAttempt() int {
	g.attempts++
	return g.attempts
}
