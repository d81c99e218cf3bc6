package process

import (
	"context"
	"fmt"
	"sync"

	"github.com/Deepreo/gorev/core"
)

// Middleware wraps a processor with cross-cutting behavior such as tracing or
// logging.
type Middleware func(next core.ProcessorFunc) core.ProcessorFunc

// Registry, operasyon tiplerini işleyicilere bağlayan bir core.OperationProcessor
// implementasyonudur. Kuyruktan çekilen her operasyon, OperationType alanına
// göre kayıtlı işleyiciye yönlendirilir.
type Registry struct {
	processors  map[string]core.ProcessorFunc
	middlewares []Middleware
	mu          sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]core.ProcessorFunc),
	}
}

func (r *Registry) Use(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, middleware...)
}

// Register binds a processor to an operation type. Registering the same type
// twice is an error.
func (r *Registry) Register(operationType string, processor core.ProcessorFunc) error {
	if processor == nil {
		return fmt.Errorf("processor is required for operation type: %s", operationType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[operationType]; exists {
		return fmt.Errorf("processor already registered for operation type: %s", operationType)
	}
	r.processors[operationType] = processor
	return nil
}

func (r *Registry) Process(ctx context.Context, op core.PendingOperation) error {
	r.mu.RLock()
	processor, ok := r.processors[op.OperationType]
	middlewares := r.middlewares
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no processor registered for operation type: %s", op.OperationType)
	}

	// Middleware Zincirini Kur (Chain Construction)
	// En son çalışacak olan: Asıl işleyici
	chain := processor

	// Listeyi tersten dönerek işleyiciyi katman katman sarmalıyoruz.
	// Örnek: Tracing( Logging( Processor ) )
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}

	return chain(ctx, op)
}
