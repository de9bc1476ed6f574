package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mcoot/archive/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case []GameEntry:
		o.printGames(v)
	case History:
		o.printHistory(v)
	case MigrationResult:
		o.printMigration(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// GameEntry describes one playable game
type GameEntry struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	DefaultDifficulty string `json:"default_difficulty"`
}

func newGameEntry(info model.GameInfo) GameEntry {
	return GameEntry{
		ID:                string(info.ID),
		Name:              info.Name,
		Description:       info.Description,
		DefaultDifficulty: string(info.Difficulty),
	}
}

// History is a user's recent sessions
type History struct {
	Email    string         `json:"email"`
	Sessions []HistoryEntry `json:"sessions"`
}

// HistoryEntry is one game session
type HistoryEntry struct {
	ID         int64          `json:"id"`
	GameID     string         `json:"game_id"`
	Difficulty string         `json:"difficulty"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    *time.Time     `json:"end_time"`
	Duration   *float64       `json:"duration"`
	Score      *int           `json:"score"`
	Completed  bool           `json:"completed"`
	Data       map[string]any `json:"session_data"`
}

func newHistoryEntry(s *model.GameSession) HistoryEntry {
	return HistoryEntry{
		ID:         int64(s.ID),
		GameID:     string(s.GameID),
		Difficulty: string(s.DifficultyLevel),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Duration:   s.Duration,
		Score:      s.Score,
		Completed:  s.Completed,
		Data:       s.SessionData,
	}
}

// MigrationResult reports a schema change
type MigrationResult struct {
	Path        string `json:"path"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
}

func (o *Output) printGames(entries []GameEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(o.out, "No games available")
		return
	}
	fmt.Fprintf(o.out, "Games (%d):\n", len(entries))
	for i, g := range entries {
		fmt.Fprintf(o.out, "  %d. %s (%s)\n", i+1, g.Name, g.ID)
		fmt.Fprintf(o.out, "     %s\n", g.Description)
		fmt.Fprintf(o.out, "     Default difficulty: %s\n", g.DefaultDifficulty)
	}
}

func (o *Output) printHistory(h History) {
	if len(h.Sessions) == 0 {
		fmt.Fprintf(o.out, "No game sessions for %s\n", h.Email)
		return
	}
	fmt.Fprintf(o.out, "Game history for %s (%d):\n", h.Email, len(h.Sessions))
	for _, s := range h.Sessions {
		score := "-"
		if s.Score != nil {
			score = strconv.Itoa(*s.Score)
		}
		status := historyStatus(s)
		fmt.Fprintf(o.out, "  #%d %s %s [%s] score %s, %s\n",
			s.ID, s.StartTime.Local().Format("2006-01-02 15:04"), s.GameID, s.Difficulty, score, status)
	}
}

func (o *Output) printMigration(m MigrationResult) {
	fmt.Fprintf(o.out, "Database: %s\n", m.Path)
	if m.FromVersion == m.ToVersion {
		fmt.Fprintf(o.out, "Schema already at version %d\n", m.ToVersion)
		return
	}
	fmt.Fprintf(o.out, "Schema migrated from version %d to %d\n", m.FromVersion, m.ToVersion)
}

func historyStatus(s HistoryEntry) string {
	switch {
	case s.EndTime == nil:
		return "in progress"
	case s.Data["quit_early"] == true:
		return "quit"
	case s.Data["success"] == true:
		return "won"
	case s.Completed:
		return "lost"
	default:
		return "abandoned"
	}
}
