// Package calc holds the immutable value types of the math engine: the
// question a client submits, the operation tracked while it waits, and the
// formatted answer produced when it completes.
package calc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxDelaySeconds is the largest delay that still fits in a time.Duration.
const MaxDelaySeconds = uint64(math.MaxInt64 / int64(time.Second))

// Question is a user submitted arithmetic request. It has no identity.
type Question struct {
	FirstOperand  float64  `json:"first_operand"`
	SecondOperand float64  `json:"second_operand"`
	Operator      Operator `json:"operator"`
	DelaySeconds  uint64   `json:"delay_seconds"`
}

// Delay returns the question delay as a duration, clamped to MaxDelaySeconds.
func (q Question) Delay() time.Duration {
	if q.DelaySeconds > MaxDelaySeconds {
		return time.Duration(MaxDelaySeconds) * time.Second
	}
	return time.Duration(q.DelaySeconds) * time.Second
}

func (q Question) String() string {
	return fmt.Sprintf("%.2f %s %.2f", q.FirstOperand, q.Operator.Symbol(), q.SecondOperand)
}

// Operation is a question in flight. ID is the sole equality key.
type Operation struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Question  Question  `json:"question"`
}

// NewOperation assigns a fresh id and stamps the operation with now and
// now + delay.
func NewOperation(q Question, now time.Time) Operation {
	return Operation{
		ID:        uuid.NewString(),
		StartTime: now,
		EndTime:   now.Add(q.Delay()),
		Question:  q,
	}
}

// Remaining is the time left until EndTime, never negative.
func (o Operation) Remaining(now time.Time) time.Duration {
	if d := o.EndTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Answer is the terminal, human readable result of a completed operation.
type Answer struct {
	Text string `json:"text"`
}

// Solve computes the question and formats it as "2.00 + 3.00 = 5.00".
func Solve(q Question) Answer {
	result := q.Operator.Compute(q.FirstOperand, q.SecondOperand)
	return Answer{Text: fmt.Sprintf("%s = %.2f", q, result)}
}

// FormatRemaining renders d as hh:mm:ss. Sub-second remainders round up so
// a countdown never shows 00:00:00 while time is still left.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
