// Package scoring computes the score of a finished number-guessing play.
package scoring

import (
	"errors"
	"fmt"

	"github.com/mcoot/archive/internal/model"
)

// ErrInvalidInput is returned when the inputs fall outside the scoring domain
var ErrInvalidInput = errors.New("invalid scoring input")

// Input describes one finished play
type Input struct {
	AttemptsUsed int
	MaxAttempts  int
	MinNumber    int
	MaxNumber    int
	Difficulty   model.Difficulty
	Won          bool
}

// Score returns the points earned for a play.
//
//	score = floor(1000 * (max-used+1)/max * rangeSize/100 * multiplier)
//
// The constants cancel to (max-used+1) * rangeSize * multiplierTenths / max,
// so the result is exact integer division. A loss scores 0. Unknown
// difficulties score as the middle tier.
func Score(in Input) (int, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	if !in.Won {
		return 0, nil
	}

	remaining := int64(in.MaxAttempts - in.AttemptsUsed + 1)
	rangeSize := int64(in.MaxNumber - in.MinNumber + 1)
	tenths := int64(in.Difficulty.MultiplierTenths())

	return int(remaining * rangeSize * tenths / int64(in.MaxAttempts)), nil
}

func (in Input) validate() error {
	switch {
	case in.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d < 1", ErrInvalidInput, in.MaxAttempts)
	case in.AttemptsUsed < 1 || in.AttemptsUsed > in.MaxAttempts:
		return fmt.Errorf("%w: attempts used %d not in [1, %d]", ErrInvalidInput, in.AttemptsUsed, in.MaxAttempts)
	case in.MaxNumber <= in.MinNumber:
		return fmt.Errorf("%w: range [%d, %d] is empty", ErrInvalidInput, in.MinNumber, in.MaxNumber)
	}
	return nil
}
