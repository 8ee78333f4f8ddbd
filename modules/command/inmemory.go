package command

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
)

type InMemory struct {
	handlers    map[reflect.Type]core.CommandHandlerFunc
	middlewares []core.CommandMiddleware
	mu          sync.RWMutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		handlers: make(map[reflect.Type]core.CommandHandlerFunc),
	}
}

func (b *InMemory) Use(middleware ...core.CommandMiddleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, middleware...)
}

func (b *InMemory) Dispatch(ctx context.Context, cmd core.Command) error {
	cmdType := reflect.TypeOf(cmd)

	b.mu.RLock()
	handler, ok := b.handlers[cmdType]
	middlewares := b.middlewares
	b.mu.RUnlock()
	if !ok {
		return errors.AppError(fmt.Errorf("no handler found for command: %v", cmdType))
	}

	// Wrap from the inside out: Tracing(Logging(Handler)).
	chain := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}
	return chain(ctx, cmd)
}

// Don't use this method directly, use the core.RegisterCommand helper instead.
func (b *InMemory) Register(cmdType reflect.Type, handler core.CommandHandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[cmdType]; exists {
		return fmt.Errorf("handler already registered for command: %v", cmdType)
	}
	b.handlers[cmdType] = handler
	return nil
}
