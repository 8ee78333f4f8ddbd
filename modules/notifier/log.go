package notifier

import (
	"log/slog"

	"github.com/Deepreo/mathengine/engine"
)

// Log writes every status change to a slog logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notifier")}
}

func (l *Log) Update(pending, results int) {
	l.logger.Info(engine.StatusText(pending, results), "pending", pending, "finished", results)
}

func (l *Log) SetIdle() {
	l.logger.Info("idle")
}

func (l *Log) Failed(id string, err error) {
	l.logger.Warn("operation failed", "id", id, "error", err)
}
