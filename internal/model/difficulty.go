package model

// Difficulty is a tier that maps deterministically to game parameters
// and a scoring multiplier
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// DefaultDifficulty is the middle tier, used for unrecognised values
const DefaultDifficulty = DifficultyMedium

// Difficulties returns the supported tiers in ascending order
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// IsValid reports whether d is one of the supported tiers
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Normalize returns d, or the middle tier if d is not recognised
func (d Difficulty) Normalize() Difficulty {
	if d.IsValid() {
		return d
	}
	return DefaultDifficulty
}

// MultiplierTenths returns the scoring multiplier in tenths (15 == 1.5x)
func (d Difficulty) MultiplierTenths() int {
	switch d.Normalize() {
	case DifficultyEasy:
		return 10
	case DifficultyHard:
		return 20
	default:
		return 15
	}
}

// Multiplier returns the scoring multiplier
func (d Difficulty) Multiplier() float64 {
	return float64(d.MultiplierTenths()) / 10
}
