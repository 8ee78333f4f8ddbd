package servers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/engine"
	"github.com/Deepreo/mathengine/modules/auth"
	"github.com/Deepreo/mathengine/modules/notifier"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	APIPrefix      = "/api/v1"
	OperationsPath = APIPrefix + "/operations"
	CancelPath     = APIPrefix + "/operations/cancel"
	ResultsPath    = APIPrefix + "/results"
	ClearPath      = APIPrefix + "/results/clear"
	StatusPath     = APIPrefix + "/status"
	StreamPath     = APIPrefix + "/stream"
)

// API is everything the HTTP surface needs from the application.
type API struct {
	Commands core.CommandBus
	Queries  core.QueryBus
	Status   *notifier.Status
	Feed     Feed
	Clock    clockwork.Clock

	// Metrics is mounted on MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	StreamBuffer    int
	StreamHeartbeat time.Duration
}

// RegisterRoutes mounts the engine endpoints on server.
func RegisterRoutes(server *HttpServer, api API) {
	if api.Clock == nil {
		api.Clock = clockwork.NewRealClock()
	}

	core.RegisterEndpoint[*SubmitRequest, SubmitResponse](server, fiber.MethodPost, OperationsPath, &submitHandler{commands: api.Commands})
	core.RegisterEndpoint[NoRequest, []PendingView](server, fiber.MethodGet, OperationsPath, &pendingHandler{queries: api.Queries, clock: api.Clock})
	core.RegisterEndpoint[CancelRequest, CancelResponse](server, fiber.MethodPost, CancelPath, &cancelHandler{status: api.Status})
	core.RegisterEndpoint[NoRequest, []calc.Answer](server, fiber.MethodGet, ResultsPath, &resultsHandler{queries: api.Queries})
	core.RegisterEndpoint[ClearRequest, ClearResponse](server, fiber.MethodPost, ClearPath, &clearHandler{commands: api.Commands})
	core.RegisterEndpoint[NoRequest, StatusResponse](server, fiber.MethodGet, StatusPath, &statusHandler{queries: api.Queries, status: api.Status})

	if api.Feed != nil {
		stream := NewStream(api.Feed, api.Clock, server.Done(), server.logger)
		if api.StreamBuffer > 0 {
			stream.buffer = api.StreamBuffer
		}
		if api.StreamHeartbeat > 0 {
			stream.heartbeat = api.StreamHeartbeat
		}
		server.App().Get(StreamPath, stream.Handle)
	}
	if api.Metrics != nil && api.MetricsPath != "" {
		server.App().Get(api.MetricsPath, adaptor.HTTPHandler(api.Metrics))
	}
}

/**--------------------------------------------
 *               REQUESTS
 *---------------------------------------------**/

// Field accepts both JSON strings and bare JSON numbers so the boundary sees
// the text exactly as the client wrote it.
type Field string

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	*f = Field(data)
	return nil
}

type SubmitRequest struct {
	FirstOperand  Field `json:"first_operand" form:"first_operand" query:"first_operand"`
	SecondOperand Field `json:"second_operand" form:"second_operand" query:"second_operand"`
	Operator      Field `json:"operator" form:"operator" query:"operator"`
	DelaySeconds  Field `json:"delay_seconds" form:"delay_seconds" query:"delay_seconds"`

	question calc.Question
}

func (r *SubmitRequest) Validate() error {
	q, err := calc.Parse(string(r.FirstOperand), string(r.SecondOperand), string(r.Operator), string(r.DelaySeconds))
	if err != nil {
		return err
	}
	r.question = q
	return nil
}

func (r *SubmitRequest) RequiredScope() string { return auth.ScopeWrite }

type NoRequest struct{}

func (NoRequest) Validate() error { return nil }

type CancelRequest struct{}

func (CancelRequest) Validate() error       { return nil }
func (CancelRequest) RequiredScope() string { return auth.ScopeWrite }

type ClearRequest struct{}

func (ClearRequest) Validate() error       { return nil }
func (ClearRequest) RequiredScope() string { return auth.ScopeWrite }

/**--------------------------------------------
 *               RESPONSES
 *---------------------------------------------**/

type SubmitResponse struct {
	ID       string        `json:"id"`
	Question calc.Question `json:"question"`
	Text     string        `json:"text"`
}

// PendingView is an operation as the client displays it.
type PendingView struct {
	ID        string        `json:"id"`
	Question  calc.Question `json:"question"`
	Text      string        `json:"text"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Remaining string        `json:"remaining"`
}

func NewPendingViews(ops []calc.Operation, now time.Time) []PendingView {
	views := make([]PendingView, 0, len(ops))
	for _, op := range ops {
		views = append(views, PendingView{
			ID:        op.ID,
			Question:  op.Question,
			Text:      op.Question.String(),
			StartTime: op.StartTime,
			EndTime:   op.EndTime,
			Remaining: calc.FormatRemaining(op.Remaining(now)),
		})
	}
	return views
}

type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}

type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

type StatusResponse struct {
	Surface notifier.StatusView `json:"surface"`
	Engine  engine.Status       `json:"engine"`
}

/**--------------------------------------------
 *               HANDLERS
 *---------------------------------------------**/

type submitHandler struct{ commands core.CommandBus }

func (h *submitHandler) Handle(ctx context.Context, req *SubmitRequest) (SubmitResponse, error) {
	cmd := engine.NewSubmitQuestion(req.question)
	if err := h.commands.Dispatch(ctx, cmd); err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{ID: cmd.OperationID, Question: req.question, Text: req.question.String()}, nil
}

type pendingHandler struct {
	queries core.QueryBus
	clock   clockwork.Clock
}

func (h *pendingHandler) Handle(ctx context.Context, _ NoRequest) ([]PendingView, error) {
	ops, err := core.ExecuteQuery[*engine.PendingQuery, []calc.Operation](ctx, h.queries, &engine.PendingQuery{ID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return NewPendingViews(ops, h.clock.Now()), nil
}

type resultsHandler struct{ queries core.QueryBus }

func (h *resultsHandler) Handle(ctx context.Context, _ NoRequest) ([]calc.Answer, error) {
	results, err := core.ExecuteQuery[*engine.ResultsQuery, []calc.Answer](ctx, h.queries, &engine.ResultsQuery{ID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []calc.Answer{}
	}
	return results, nil
}

type cancelHandler struct{ status *notifier.Status }

func (h *cancelHandler) Handle(ctx context.Context, _ CancelRequest) (CancelResponse, error) {
	n, err := h.status.Cancel(ctx)
	if err != nil {
		return CancelResponse{}, err
	}
	return CancelResponse{Cancelled: n}, nil
}

type clearHandler struct{ commands core.CommandBus }

func (h *clearHandler) Handle(ctx context.Context, _ ClearRequest) (ClearResponse, error) {
	if err := h.commands.Dispatch(ctx, engine.NewClearResults()); err != nil {
		return ClearResponse{}, err
	}
	return ClearResponse{Cleared: true}, nil
}

type statusHandler struct {
	queries core.QueryBus
	status  *notifier.Status
}

func (h *statusHandler) Handle(ctx context.Context, _ NoRequest) (StatusResponse, error) {
	stats, err := core.ExecuteQuery[*engine.StatusQuery, engine.Status](ctx, h.queries, &engine.StatusQuery{ID: uuid.NewString()})
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Surface: h.status.View(), Engine: stats}, nil
}
