package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(Conflict(ReasonGameFull))
	assert.True(t, ok)
	assert.Equal(t, KindConflict, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("accepting join request: %w", Conflict(ReasonAlreadyDecided))
	assert.True(t, IsConflict(err))
	assert.Equal(t, ReasonAlreadyDecided, ReasonOf(err))
}

func TestTransientWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient(cause)

	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReasonOfPlainError(t *testing.T) {
	assert.Equal(t, "boom", ReasonOf(errors.New("boom")))
}

func TestNotifyFailureIsNotConflict(t *testing.T) {
	err := NotifyFailure(errors.New("insert failed"))
	assert.True(t, Is(err, KindNotify))
	assert.False(t, IsConflict(err))
	assert.False(t, IsTransient(err))
}
