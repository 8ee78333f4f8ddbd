package servers

import (
	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"github.com/gofiber/fiber/v2"
	"go.elastic.co/apm/v2"
)

// StatusFor maps an error level to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch errors.GetLevel(err) {
	case errors.ERR_VALIDATION, errors.ERR_DOMAIN:
		return fiber.StatusBadRequest
	case errors.ERR_AUTH:
		return fiber.StatusUnauthorized
	case errors.ERR_PERMISSION:
		return fiber.StatusForbidden
	case errors.ERR_APPLICATION:
		return fiber.StatusServiceUnavailable
	case errors.ERR_INFRASTRUCTURE:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *HttpServer) writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	apiErr := &core.APIError{Code: errors.GetCode(err)}

	var extendErr *errors.ExtendError
	if errors.As(err, &extendErr) && len(extendErr.Metadata) > 0 {
		apiErr.Details = extendErr.Metadata
	}

	// Client errors carry their message; server errors only a trace id.
	if status < fiber.StatusInternalServerError {
		apiErr.Message = err.Error()
	} else {
		apiErr.Message = statusMessage(status)
		if tx := apm.TransactionFromContext(c.UserContext()); tx != nil {
			apiErr.TraceID = tx.TraceContext().Trace.String()
		}
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"level", errors.GetLevel(err).String(),
			"trace_id", apiErr.TraceID,
			"error", err,
		)
	}

	return c.Status(status).JSON(core.BaseResponse[any]{Error: apiErr})
}

func statusMessage(status int) string {
	switch status {
	case fiber.StatusServiceUnavailable:
		return fiber.ErrServiceUnavailable.Message
	case fiber.StatusBadGateway:
		return fiber.ErrBadGateway.Message
	}
	return fiber.ErrInternalServerError.Message
}
