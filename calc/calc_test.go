package calc_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperator_Compute(t *testing.T) {
	tests := []struct {
		op       calc.Operator
		a, b     float64
		expected float64
	}{
		{calc.Add, 2, 3, 5},
		{calc.Add, -1.5, 1.5, 0},
		{calc.Subtract, 10, 4, 6},
		{calc.Subtract, 0, 7, -7},
		{calc.Multiply, 3, 4, 12},
		{calc.Multiply, -2, 0.5, -1},
		{calc.Divide, 9, 3, 3},
		{calc.Divide, 1, 4, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.op.Compute(tt.a, tt.b), 1e-9)
		})
	}
}

func TestOperator_DivideByZeroIsRawFloatingPoint(t *testing.T) {
	assert.True(t, math.IsInf(calc.Divide.Compute(5, 0), 1))
	assert.True(t, math.IsInf(calc.Divide.Compute(-5, 0), -1))
	assert.True(t, math.IsNaN(calc.Divide.Compute(0, 0)))
}

func TestOperator_SymbolsAndNames(t *testing.T) {
	symbols := map[calc.Operator]string{calc.Add: "+", calc.Subtract: "-", calc.Multiply: "*", calc.Divide: "/"}
	for op, symbol := range symbols {
		assert.Equal(t, symbol, op.Symbol())

		byName, err := calc.ParseOperator(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, byName)

		bySymbol, err := calc.ParseOperator(symbol)
		require.NoError(t, err)
		assert.Equal(t, op, bySymbol)
	}

	_, err := calc.ParseOperator("modulo")
	assert.Error(t, err)
	assert.False(t, calc.Operator(42).Valid())
	assert.Equal(t, "?", calc.Operator(42).Symbol())
}

func TestOperator_JSON(t *testing.T) {
	raw, err := json.Marshal(calc.Question{FirstOperand: 1, SecondOperand: 2, Operator: calc.Multiply, DelaySeconds: 3})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"operator":"multiply"`)

	var q calc.Question
	require.NoError(t, json.Unmarshal([]byte(`{"operator":"/"}`), &q))
	assert.Equal(t, calc.Divide, q.Operator)
}

func TestSolve(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		answer := calc.Solve(calc.Question{FirstOperand: 2, SecondOperand: 3, Operator: calc.Add})
		assert.Equal(t, "2.00 + 3.00 = 5.00", answer.Text)
	})
	t.Run("Divide", func(t *testing.T) {
		answer := calc.Solve(calc.Question{FirstOperand: 1, SecondOperand: 3, Operator: calc.Divide})
		assert.Equal(t, "1.00 / 3.00 = 0.33", answer.Text)
	})
	t.Run("Subtract negative", func(t *testing.T) {
		answer := calc.Solve(calc.Question{FirstOperand: 1.5, SecondOperand: 4, Operator: calc.Subtract})
		assert.Equal(t, "1.50 - 4.00 = -2.50", answer.Text)
	})
}

func TestNewOperation(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := calc.Question{FirstOperand: 1, SecondOperand: 1, Operator: calc.Add, DelaySeconds: 90}

	a := calc.NewOperation(q, now)
	b := calc.NewOperation(q, now)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, now, a.StartTime)
	assert.Equal(t, now.Add(90*time.Second), a.EndTime)
	assert.Equal(t, 30*time.Second, a.Remaining(now.Add(time.Minute)))
	assert.Zero(t, a.Remaining(now.Add(time.Hour)))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "00:00:00", calc.FormatRemaining(0))
	assert.Equal(t, "00:00:00", calc.FormatRemaining(-time.Second))
	assert.Equal(t, "00:00:01", calc.FormatRemaining(200*time.Millisecond))
	assert.Equal(t, "00:01:05", calc.FormatRemaining(65*time.Second))
	assert.Equal(t, "27:46:40", calc.FormatRemaining(100000*time.Second))
}

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		q, err := calc.Parse(" 2 ", "3.5", "add", "10")
		require.NoError(t, err)
		assert.Equal(t, calc.Question{FirstOperand: 2, SecondOperand: 3.5, Operator: calc.Add, DelaySeconds: 10}, q)
	})

	t.Run("Zero delay", func(t *testing.T) {
		q, err := calc.Parse("2", "3", "+", "0")
		require.NoError(t, err)
		assert.Zero(t, q.DelaySeconds)
	})

	tests := []struct {
		name                     string
		first, second, op, delay string
		sentinel                 error
		code                     string
	}{
		{"empty operand", "", "3", "add", "1", calc.ErrInvalidOperand, errors.CodeInvalidOperand},
		{"non numeric operand", "2", "abc", "add", "1", calc.ErrInvalidOperand, errors.CodeInvalidOperand},
		{"infinite operand", "Inf", "1", "add", "1", calc.ErrInvalidOperand, errors.CodeInvalidOperand},
		{"unknown operator", "2", "3", "pow", "1", calc.ErrInvalidOperator, errors.CodeInvalidOperator},
		{"division by zero", "5", "0", "divide", "1", calc.ErrDivisionByZero, errors.CodeDivisionByZero},
		{"negative zero divisor", "5", "-0", "/", "1", calc.ErrDivisionByZero, errors.CodeDivisionByZero},
		{"negative delay", "2", "3", "add", "-1", calc.ErrInvalidDelay, errors.CodeInvalidDelay},
		{"fractional delay", "2", "3", "add", "1.5", calc.ErrInvalidDelay, errors.CodeInvalidDelay},
		{"empty delay", "2", "3", "add", "", calc.ErrInvalidDelay, errors.CodeInvalidDelay},
		{"overflowing delay", "2", "3", "add", "18446744073709551615", calc.ErrInvalidDelay, errors.CodeInvalidDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Parse(tt.first, tt.second, tt.op, tt.delay)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestRecord_Resume(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	op := calc.NewOperation(calc.Question{FirstOperand: 4, SecondOperand: 2, Operator: calc.Divide, DelaySeconds: 10}, now)
	record := calc.NewRecord(op)

	assert.Equal(t, op.ID, record.ID)
	assert.Equal(t, op.EndTime, record.EndTime)

	resumed := record.Resume(now.Add(3500 * time.Millisecond))
	assert.Equal(t, uint64(7), resumed.DelaySeconds)
	assert.Equal(t, calc.Divide, resumed.Operator)

	assert.Zero(t, record.Resume(now.Add(time.Minute)).DelaySeconds)
}
