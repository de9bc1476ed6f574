package menu

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/mcoot/archive/internal/console"
	"github.com/mcoot/archive/internal/games"
	"github.com/mcoot/archive/internal/model"
	"github.com/mcoot/archive/internal/services/auth"
)

// topResults is how many of the user's best plays are shown after a game
const topResults = 5

type postGameAction int

const (
	actionReturn postGameAction = iota
	actionReplay
	actionReplayNewDifficulty
)

func (m *Menu) gamesMenu(ctx context.Context, session *auth.Session) error {
	for {
		available := m.catalog.Games()
		if len(available) == 0 {
			m.term.Warn("No games are available.")
		}

		options := make([]string, 0, len(available)+1)
		for _, game := range available {
			info := game.Info()
			options = append(options, fmt.Sprintf("%s - %s", info.Name, info.Description))
		}
		options = append(options, "Return to Main Menu")

		choice, err := m.choose(ctx, "Game Collection", options, 0)
		if err != nil {
			return err
		}
		if choice == len(options) {
			return nil
		}

		if err := m.play(ctx, session, available[choice-1]); err != nil {
			return err
		}
	}
}

// play runs a game until the user returns to the games menu
func (m *Menu) play(ctx context.Context, session *auth.Session, game *games.Game) error {
	pickDifficulty := true

	for {
		if pickDifficulty {
			picked, err := m.difficultyMenu(ctx, game)
			if err != nil {
				return err
			}
			if !picked {
				return nil
			}
		}

		result := game.Start(ctx, session.UserID(), m.tracker)
		if result.Err != nil && (errors.Is(result.Err, console.ErrInputClosed) || errors.Is(result.Err, context.Canceled)) {
			return result.Err
		}
		m.showResult(ctx, session, game, result)

		action, err := m.postGameMenu(ctx, game)
		if err != nil {
			return err
		}
		switch action {
		case actionReplay:
			pickDifficulty = false
		case actionReplayNewDifficulty:
			pickDifficulty = true
		default:
			return nil
		}
	}
}

// difficultyMenu sets the game's difficulty. Returns false when the user
// went back instead.
func (m *Menu) difficultyMenu(ctx context.Context, game *games.Game) (bool, error) {
	tiers := model.Difficulties()
	options := make([]string, 0, len(tiers)+1)
	def := 0
	for i, tier := range tiers {
		label := string(tier)
		if tier == game.Difficulty() {
			label += " (current)"
			def = i + 1
		}
		options = append(options, label)
	}
	options = append(options, "Return to Games Menu")

	choice, err := m.choose(ctx, fmt.Sprintf("Select difficulty for %s", game.Info().Name), options, def)
	if err != nil {
		return false, err
	}
	if choice == len(options) {
		return false, nil
	}

	game.SetDifficulty(tiers[choice-1])
	return true, nil
}

func (m *Menu) showResult(ctx context.Context, session *auth.Session, game *games.Game, result games.Result) {
	switch result.Outcome {
	case games.OutcomeWon:
		m.term.Success("You won! Final score: %d", result.Score)
	case games.OutcomeLost:
		m.term.Warn("Better luck next time. Final score: %d", result.Score)
	case games.OutcomeQuit:
		m.term.Warn("Game ended early.")
	default:
		m.term.Error("The game stopped unexpectedly: %v", result.Err)
	}

	sessions, err := m.tracker.UserHistory(ctx, session.UserID(), m.historyLimit)
	if err != nil {
		m.logger.Warn("could not load recent results", "user_id", session.UserID(), "error", err)
		return
	}

	var played []*model.GameSession
	for _, s := range sessions {
		if s.GameID == game.ID() && s.Score != nil {
			played = append(played, s)
		}
	}
	if len(played) == 0 {
		return
	}

	slices.SortStableFunc(played, func(a, b *model.GameSession) int {
		return cmp.Compare(*b.Score, *a.Score)
	})
	if len(played) > topResults {
		played = played[:topResults]
	}

	m.term.Title(fmt.Sprintf("Your top recent %s scores", game.Info().Name))
	rows := make([][]string, len(played))
	for i, s := range played {
		rows[i] = []string{
			s.StartTime.Local().Format(timeLayout),
			string(s.DifficultyLevel),
			formatScore(s.Score),
			formatOutcome(s),
		}
	}
	m.term.Table([]string{"Date", "Difficulty", "Score", "Result"}, rows)
}

func (m *Menu) postGameMenu(ctx context.Context, game *games.Game) (postGameAction, error) {
	name := game.Info().Name
	choice, err := m.choose(ctx, "What would you like to do next?", []string{
		fmt.Sprintf("Play %s again (same difficulty - %s)", name, game.Difficulty()),
		fmt.Sprintf("Play %s again (choose new difficulty)", name),
		"Return to Games Menu",
	}, 0)
	if err != nil {
		return actionReturn, err
	}

	switch choice {
	case 1:
		return actionReplay, nil
	case 2:
		return actionReplayNewDifficulty, nil
	default:
		return actionReturn, nil
	}
}

func (m *Menu) history(ctx context.Context, session *auth.Session) error {
	sessions, err := m.tracker.UserHistory(ctx, session.UserID(), m.historyLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(sessions) == 0 {
		m.term.Info("You have not played any games yet.")
		return m.pause(ctx, "Press Enter to return to the main menu")
	}

	m.term.Title("Game History")
	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			s.StartTime.Local().Format(timeLayout),
			m.gameName(s.GameID),
			string(s.DifficultyLevel),
			formatScore(s.Score),
			formatOutcome(s),
			formatDuration(s.Duration),
		}
	}
	m.term.Table([]string{"Date", "Game", "Difficulty", "Score", "Result", "Duration"}, rows)
	return m.pause(ctx, "Press Enter to return to the main menu")
}

func (m *Menu) gameName(id model.GameID) string {
	if game, err := m.catalog.Get(id); err == nil {
		return game.Info().Name
	}
	return string(id)
}

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score)
}

func formatDuration(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	return time.Duration(*seconds * float64(time.Second)).Round(time.Second).String()
}

func formatOutcome(s *model.GameSession) string {
	switch {
	case !s.IsEnded():
		return "in progress"
	case s.SessionData["quit_early"] == true:
		return "quit"
	case s.SessionData["success"] == true:
		return "won"
	case s.Completed:
		return "lost"
	default:
		return "abandoned"
	}
}
