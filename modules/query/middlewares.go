package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Deepreo/mathengine/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func LoggingMiddleware(logger *slog.Logger) core.QueryMiddleware {
	return func(next core.QueryHandlerFunc) core.QueryHandlerFunc {
		return func(ctx context.Context, q core.Query) (core.QueryResponse, error) {
			start := time.Now()
			res, err := next(ctx, q)
			if err != nil {
				logger.WarnContext(ctx, "query failed",
					"query", fmt.Sprintf("%T", q),
					"query_id", q.QueryID(),
					"error", err,
				)
				return res, err
			}
			logger.DebugContext(ctx, "query handled",
				"query", fmt.Sprintf("%T", q),
				"query_id", q.QueryID(),
				"duration", time.Since(start),
			)
			return res, nil
		}
	}
}

func OTelMiddleware(next core.QueryHandlerFunc) core.QueryHandlerFunc {
	return func(ctx context.Context, q core.Query) (core.QueryResponse, error) {
		tracer := otel.Tracer("query-bus")
		ctx, span := tracer.Start(ctx, "execute_query",
			trace.WithAttributes(attribute.String("query.type", fmt.Sprintf("%T", q))),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		res, err := next(ctx, q)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return res, err
	}
}
