package calc

import "time"

// Record is the minimal persisted form of a pending operation.
type Record struct {
	ID            string    `json:"id"`
	FirstOperand  float64   `json:"first_operand"`
	SecondOperand float64   `json:"second_operand"`
	Operator      Operator  `json:"operator"`
	DelaySeconds  uint64    `json:"delay_seconds"`
	EndTime       time.Time `json:"end_time"`
}

func NewRecord(op Operation) Record {
	return Record{
		ID:            op.ID,
		FirstOperand:  op.Question.FirstOperand,
		SecondOperand: op.Question.SecondOperand,
		Operator:      op.Question.Operator,
		DelaySeconds:  op.Question.DelaySeconds,
		EndTime:       op.EndTime,
	}
}

func NewRecords(ops []Operation) []Record {
	records := make([]Record, 0, len(ops))
	for _, op := range ops {
		records = append(records, NewRecord(op))
	}
	return records
}

// Resume rebuilds the question for resubmission after a restart. The delay
// is whatever is left until EndTime at now, rounded up to whole seconds; a
// record whose end time has passed resumes with no delay.
func (r Record) Resume(now time.Time) Question {
	var delay uint64
	if left := r.EndTime.Sub(now); left > 0 {
		delay = uint64((left + time.Second - 1) / time.Second)
	}
	return Question{
		FirstOperand:  r.FirstOperand,
		SecondOperand: r.SecondOperand,
		Operator:      r.Operator,
		DelaySeconds:  delay,
	}
}
