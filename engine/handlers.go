package engine

import (
	"context"
	"fmt"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/core"
	"github.com/google/uuid"
)

// StatusText is the one line summary shown on the status surface.
func StatusText(pending, finished int) string {
	return fmt.Sprintf("%d pending, %d finished", pending, finished)
}

/**--------------------------------------------
 *               COMMANDS
 *---------------------------------------------**/

// SubmitQuestion asks the engine to schedule Question. The handler fills in
// OperationID.
type SubmitQuestion struct {
	ID          string
	Question    calc.Question
	OperationID string
}

func NewSubmitQuestion(q calc.Question) *SubmitQuestion {
	return &SubmitQuestion{ID: uuid.NewString(), Question: q}
}

func (c *SubmitQuestion) CommandID() string { return c.ID }

type CancelAll struct {
	ID        string
	Cancelled int
}

func NewCancelAll() *CancelAll { return &CancelAll{ID: uuid.NewString()} }

func (c *CancelAll) CommandID() string { return c.ID }

type ClearResults struct {
	ID string
}

func NewClearResults() *ClearResults { return &ClearResults{ID: uuid.NewString()} }

func (c *ClearResults) CommandID() string { return c.ID }

type SubmitQuestionHandler struct{ engine *Engine }

func (h *SubmitQuestionHandler) Handle(ctx context.Context, cmd *SubmitQuestion) error {
	id, err := h.engine.Submit(ctx, cmd.Question)
	if err != nil {
		return err
	}
	cmd.OperationID = id
	return nil
}

type CancelAllHandler struct{ engine *Engine }

func (h *CancelAllHandler) Handle(ctx context.Context, cmd *CancelAll) error {
	n, err := h.engine.CancelAll(ctx)
	cmd.Cancelled = n
	return err
}

type ClearResultsHandler struct{ engine *Engine }

func (h *ClearResultsHandler) Handle(ctx context.Context, cmd *ClearResults) error {
	h.engine.ClearResults(ctx)
	return nil
}

/**--------------------------------------------
 *               QUERIES
 *---------------------------------------------**/

type PendingQuery struct{ ID string }

func (q *PendingQuery) QueryID() string { return q.ID }

type ResultsQuery struct{ ID string }

func (q *ResultsQuery) QueryID() string { return q.ID }

type StatusQuery struct{ ID string }

func (q *StatusQuery) QueryID() string { return q.ID }

// Status is what the status surface renders, plus a cancel affordance that
// is available while anything is pending.
type Status struct {
	Stats
	Text      string `json:"text"`
	CanCancel bool   `json:"can_cancel"`
}

type PendingQueryHandler struct{ engine *Engine }

func (h *PendingQueryHandler) Handle(ctx context.Context, q *PendingQuery) ([]calc.Operation, error) {
	return h.engine.PendingSnapshot(), nil
}

type ResultsQueryHandler struct{ engine *Engine }

func (h *ResultsQueryHandler) Handle(ctx context.Context, q *ResultsQuery) ([]calc.Answer, error) {
	return h.engine.ResultsSnapshot(), nil
}

type StatusQueryHandler struct{ engine *Engine }

func (h *StatusQueryHandler) Handle(ctx context.Context, q *StatusQuery) (Status, error) {
	stats := h.engine.Stats()
	return Status{
		Stats:     stats,
		Text:      StatusText(stats.Pending, stats.Results),
		CanCancel: stats.Pending > 0,
	}, nil
}

// RegisterHandlers binds the engine's commands and queries to the buses.
func RegisterHandlers(e *Engine, commands core.CommandBus, queries core.QueryBus) error {
	if err := core.RegisterCommand[*SubmitQuestion](commands, &SubmitQuestionHandler{engine: e}); err != nil {
		return err
	}
	if err := core.RegisterCommand[*CancelAll](commands, &CancelAllHandler{engine: e}); err != nil {
		return err
	}
	if err := core.RegisterCommand[*ClearResults](commands, &ClearResultsHandler{engine: e}); err != nil {
		return err
	}
	if err := core.RegisterQuery[*PendingQuery, []calc.Operation](queries, &PendingQueryHandler{engine: e}); err != nil {
		return err
	}
	if err := core.RegisterQuery[*ResultsQuery, []calc.Answer](queries, &ResultsQueryHandler{engine: e}); err != nil {
		return err
	}
	return core.RegisterQuery[*StatusQuery, Status](queries, &StatusQueryHandler{engine: e})
}

// BusCanceller routes cancel-all requests through the command bus so they
// pick up its middlewares.
type BusCanceller struct {
	Commands core.CommandBus
}

func (b BusCanceller) CancelAll(ctx context.Context) (int, error) {
	cmd := NewCancelAll()
	if err := b.Commands.Dispatch(ctx, cmd); err != nil {
		return cmd.Cancelled, err
	}
	return cmd.Cancelled, nil
}
