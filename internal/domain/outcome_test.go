package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, OutcomeOf(nil))
	assert.Equal(t, OutcomeNotFound, OutcomeOf(fmt.Errorf("delete channel: %w", ErrNotFound)))
	assert.Equal(t, OutcomeForbidden, OutcomeOf(fmt.Errorf("create: %w", ErrForbidden)))
	assert.Equal(t, OutcomeDuplicate, OutcomeOf(ErrAlreadyExists))
	assert.Equal(t, OutcomeUnexpected, OutcomeOf(ErrRateLimited))
	assert.Equal(t, OutcomeUnexpected, OutcomeOf(errors.New("boom")))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "duplicate", OutcomeDuplicate.String())
	assert.Equal(t, "outcome(42)", Outcome(42).String())
	assert.True(t, OutcomeSuccess.OK())
	assert.False(t, OutcomeDuplicate.OK())
}
