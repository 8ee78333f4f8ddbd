package query

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
)

type InMemory struct {
	handlers    map[reflect.Type]core.QueryHandlerFunc
	middlewares []core.QueryMiddleware
	mu          sync.RWMutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		handlers: make(map[reflect.Type]core.QueryHandlerFunc),
	}
}

func (b *InMemory) Register(queryType reflect.Type, handler core.QueryHandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[queryType]; exists {
		return fmt.Errorf("handler already registered for query type: %v", queryType)
	}
	b.handlers[queryType] = handler
	return nil
}

func (b *InMemory) Use(middleware ...core.QueryMiddleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, middleware...)
}

func (b *InMemory) Execute(ctx context.Context, query core.Query) (core.QueryResponse, error) {
	queryType := reflect.TypeOf(query)

	b.mu.RLock()
	handler, ok := b.handlers[queryType]
	middlewares := b.middlewares
	b.mu.RUnlock()
	if !ok {
		return nil, errors.AppError(fmt.Errorf("no handler registered for query type: %v", queryType))
	}

	chain := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}
	return chain(ctx, query)
}
