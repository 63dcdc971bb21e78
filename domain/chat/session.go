package chat

import (
	"fmt"
	"pokedex-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SessionState is the lifecycle of one connection.
// Connecting -> Active -> Closing -> Closed, never backwards.
type SessionState int32

const (
	Connecting SessionState = iota
	Active
	Closing
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ValidateLabel checks the user supplied label of a joining session.
// Labels are neither unique nor authenticated.
func ValidateLabel(label string, maxLength int) error {
	if err := validate.Var(label, fmt.Sprintf("required,max=%d", maxLength)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidLabel, err)
	}
	return nil
}
