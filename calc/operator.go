package calc

import (
	"fmt"
	"strings"
)

// Operator is the tag of a binary arithmetic operation.
type Operator int

const (
	Add Operator = iota
	Subtract
	Multiply
	Divide
)

var operatorNames = [...]string{
	Add:      "add",
	Subtract: "subtract",
	Multiply: "multiply",
	Divide:   "divide",
}

var operatorSymbols = [...]string{
	Add:      "+",
	Subtract: "-",
	Multiply: "*",
	Divide:   "/",
}

// Operators lists every supported tag in display order.
func Operators() []Operator {
	return []Operator{Add, Subtract, Multiply, Divide}
}

func (o Operator) Valid() bool {
	return o >= Add && o <= Divide
}

// Symbol returns the display symbol, e.g. "+" for Add.
func (o Operator) Symbol() string {
	if !o.Valid() {
		return "?"
	}
	return operatorSymbols[o]
}

func (o Operator) String() string {
	if !o.Valid() {
		return fmt.Sprintf("operator(%d)", int(o))
	}
	return operatorNames[o]
}

// Compute applies the operator to a and b. Division is raw floating point
// division: a zero divisor yields +Inf, -Inf or NaN. Rejecting it is the job
// of the submission boundary (see Parse).
func (o Operator) Compute(a, b float64) float64 {
	switch o {
	case Add:
		return a + b
	case Subtract:
		return a - b
	case Multiply:
		return a * b
	case Divide:
		return a / b
	default:
		panic(fmt.Sprintf("calc: compute with unknown %s", o))
	}
}

// ParseOperator accepts either the tag name ("add") or the symbol ("+").
func ParseOperator(s string) (Operator, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, op := range Operators() {
		if v == operatorNames[op] || v == operatorSymbols[op] {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("unknown %s", o)
	}
	return []byte(o.String()), nil
}

func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
