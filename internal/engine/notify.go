package engine

import (
	"context"
	"sync"
)

// Notifier is told about every recorded completion. Implementations must
// not block.
type Notifier interface {
	CompletionRecorded(ctx context.Context, r CompletionResult)
}

// NopNotifier ignores all completions.
type NopNotifier struct{}

func (NopNotifier) CompletionRecorded(context.Context, CompletionResult) {}

// MemoryNotifier keeps completions in memory for tests.
type MemoryNotifier struct {
	mu      sync.Mutex
	results []CompletionResult
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{results: []CompletionResult{}}
}

func (n *MemoryNotifier) CompletionRecorded(_ context.Context, r CompletionResult) {
	n.mu.Lock()
	n.results = append(n.results, r)
	n.mu.Unlock()
}

func (n *MemoryNotifier) Results() []CompletionResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]CompletionResult{}, n.results...)
}
