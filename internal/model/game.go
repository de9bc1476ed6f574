package model

// GameID is the stable string key of a game variant (e.g. "number_guessing")
type GameID string

// GameInfo is the metadata a game variant exposes for menu presentation
type GameInfo struct {
	ID          GameID
	Name        string
	Description string
	Difficulty  Difficulty
}
