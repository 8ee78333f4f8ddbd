package command

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

func LoggingMiddleware(logger *slog.Logger) core.CommandMiddleware {
	return func(next core.CommandHandlerFunc) core.CommandHandlerFunc {
		return func(ctx context.Context, cmd any) error {
			start := time.Now()
			err := next(ctx, cmd)
			attrs := []any{
				"command", fmt.Sprintf("%T", cmd),
				"duration", time.Since(start),
			}
			if c, ok := cmd.(core.Command); ok {
				attrs = append(attrs, "command_id", c.CommandID())
			}
			if err != nil {
				logger.WarnContext(ctx, "command failed", append(attrs, "error", err)...)
				return err
			}
			logger.DebugContext(ctx, "command handled", attrs...)
			return nil
		}
	}
}

func OTelMiddleware(next core.CommandHandlerFunc) core.CommandHandlerFunc {
	return func(ctx context.Context, cmd any) error {
		tracer := otel.Tracer("command-bus")
		name := fmt.Sprintf("%T", cmd)

		ctx, span := tracer.Start(ctx, "dispatch_command",
			trace.WithAttributes(attribute.String("command.type", name)),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx, cmd)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
