package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Deepreo/mathengine/errors"
)

// Validation failures reported by Parse. Each one is wrapped in a
// validation-level ExtendError with its own code, so callers can match
// either the sentinel (errors.Is) or the code.
var (
	ErrInvalidOperand  = errors.New("operand must be a number")
	ErrInvalidOperator = errors.New("unknown operator")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidDelay    = errors.New("delay must be a non-negative whole number of seconds")
)

// Parse is the submission boundary. It turns raw text input into a Question
// and rejects anything that must never reach the engine.
func Parse(first, second, operator, delay string) (Question, error) {
	a, err := parseOperand("first_operand", first)
	if err != nil {
		return Question{}, err
	}
	b, err := parseOperand("second_operand", second)
	if err != nil {
		return Question{}, err
	}
	op, err := ParseOperator(operator)
	if err != nil {
		return Question{}, errors.ValidationError(fmt.Errorf("%w: %q", ErrInvalidOperator, operator)).
			WithCode(errors.CodeInvalidOperator)
	}
	d, err := parseDelay(delay)
	if err != nil {
		return Question{}, err
	}
	q := Question{FirstOperand: a, SecondOperand: b, Operator: op, DelaySeconds: d}
	if err := Validate(q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks an already typed question, for callers that build
// questions directly instead of going through Parse.
func Validate(q Question) error {
	if !q.Operator.Valid() {
		return errors.ValidationError(fmt.Errorf("%w: %s", ErrInvalidOperator, q.Operator)).
			WithCode(errors.CodeInvalidOperator)
	}
	if !isFinite(q.FirstOperand) || !isFinite(q.SecondOperand) {
		return errors.ValidationError(ErrInvalidOperand).WithCode(errors.CodeInvalidOperand)
	}
	if q.Operator == Divide && q.SecondOperand == 0 {
		return errors.ValidationError(fmt.Errorf("%w: %s", ErrDivisionByZero, q)).
			WithCode(errors.CodeDivisionByZero)
	}
	if q.DelaySeconds > MaxDelaySeconds {
		return errors.ValidationError(fmt.Errorf("%w: %d exceeds %d", ErrInvalidDelay, q.DelaySeconds, MaxDelaySeconds)).
			WithCode(errors.CodeInvalidDelay)
	}
	return nil
}

func parseOperand(field, text string) (float64, error) {
	v := strings.TrimSpace(text)
	if v == "" {
		return 0, errors.ValidationError(fmt.Errorf("%w: %s is empty", ErrInvalidOperand, field)).
			WithCode(errors.CodeInvalidOperand).
			WithMetadata("field", field)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !isFinite(f) {
		return 0, errors.ValidationError(fmt.Errorf("%w: %s=%q", ErrInvalidOperand, field, text)).
			WithCode(errors.CodeInvalidOperand).
			WithMetadata("field", field)
	}
	return f, nil
}

func parseDelay(text string) (uint64, error) {
	d, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil || d > MaxDelaySeconds {
		return 0, errors.ValidationError(fmt.Errorf("%w: %q", ErrInvalidDelay, text)).
			WithCode(errors.CodeInvalidDelay).
			WithMetadata("field", "delay_seconds")
	}
	return d, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
