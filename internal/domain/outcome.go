package domain

import (
	"errors"
	"fmt"
)

// Outcome is the tagged result of a registry mutation or a gateway call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDuplicate
	OutcomeNotFound
	OutcomeForbidden
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// OK reports whether the operation changed state.
func (o Outcome) OK() bool { return o == OutcomeSuccess }

// OutcomeOf classifies an error returned by the gateway or a repository.
// Rate limiting is not retried, so it falls into OutcomeUnexpected.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrAlreadyExists):
		return OutcomeDuplicate
	default:
		return OutcomeUnexpected
	}
}
