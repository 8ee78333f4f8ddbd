package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	commonErrors "github.com/Deepreo/mathengine/errors"
	"github.com/stretchr/testify/assert"
)

func TestExtendError(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("Wrap and Unwrap", func(t *testing.T) {
		infraErr := commonErrors.InfraError(baseErr)

		assert.True(t, commonErrors.Is(baseErr, infraErr))
		assert.ErrorIs(t, infraErr, baseErr)
		assert.Equal(t, baseErr, errors.Unwrap(infraErr))
	})

	t.Run("Code and Metadata", func(t *testing.T) {
		err := commonErrors.ValidationError(baseErr).
			WithCode(commonErrors.CodeInvalidDelay).
			WithMetadata("input", "-3")

		assert.Equal(t, commonErrors.CodeInvalidDelay, err.Code)
		assert.Equal(t, "-3", err.Metadata["input"])
		assert.Equal(t, "[INVALID_DELAY] base error", err.Error())
	})

	t.Run("Rewrapping keeps the first classification", func(t *testing.T) {
		first := commonErrors.ValidationError(baseErr).WithCode(commonErrors.CodeDivisionByZero)
		second := commonErrors.InfraError(first)

		assert.Same(t, first, second)
		assert.True(t, commonErrors.IsValidationError(second))
	})

	t.Run("Level and code survive fmt wrapping", func(t *testing.T) {
		inner := commonErrors.AppError(baseErr).WithCode(commonErrors.CodeEngineNotRunning)
		outer := fmt.Errorf("submit: %w", inner)

		assert.Equal(t, commonErrors.ERR_APPLICATION, commonErrors.GetLevel(outer))
		assert.True(t, commonErrors.HasCode(outer, commonErrors.CodeEngineNotRunning))
		assert.True(t, commonErrors.IsAppError(outer))
	})

	t.Run("Unclassified errors are unknown", func(t *testing.T) {
		assert.Equal(t, commonErrors.ERR_UNKNOWN, commonErrors.GetLevel(baseErr))
		assert.Empty(t, commonErrors.GetCode(baseErr))
		assert.False(t, commonErrors.HasCode(nil, ""))
	})

	t.Run("StackTrace", func(t *testing.T) {
		err := commonErrors.DomainError(baseErr)
		assert.NotEmpty(t, err.StackTrace)
		assert.True(t, strings.Contains(err.StackTrace, "errors_test.go"))
	})
}
