package runtime

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haasonsaas/nexus/pkg/ids"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Environment hosts zero or more Runtimes and runs them concurrently. It is
// the top-level object a process constructs: one Environment per process,
// one Runtime per isolated pool of agents that should never see each
// other's internal routing.
type Environment struct {
	mu       sync.Mutex
	runtimes map[ids.RuntimeID]*Runtime
}

// NewEnvironment builds an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{runtimes: make(map[ids.RuntimeID]*Runtime)}
}

// RegisterRuntime adds rt to the environment.
func (e *Environment) RegisterRuntime(rt *Runtime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runtimes[rt.ID()] = rt
}

// TakeEventReceiver returns the external event stream for a registered
// runtime.
func (e *Environment) TakeEventReceiver(id ids.RuntimeID) (<-chan models.Event, bool) {
	e.mu.Lock()
	rt, ok := e.runtimes[id]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return rt.Events(), true
}

// Run drives every registered runtime concurrently until ctx is cancelled
// or one of them returns an error. Runtime.Run never itself returns an
// error — this wraps it in errgroup so a future runtime variant that can
// fail has somewhere to report it, and so Run blocks on every runtime
// reaching quiescence before returning.
func (e *Environment) Run(ctx context.Context) error {
	e.mu.Lock()
	runtimes := make([]*Runtime, 0, len(e.runtimes))
	for _, rt := range e.runtimes {
		runtimes = append(runtimes, rt)
	}
	e.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range runtimes {
		rt := rt
		g.Go(func() error {
			rt.Run(gctx)
			return nil
		})
	}
	return g.Wait()
}

// RunBackground starts Run on its own goroutine and returns immediately.
func (e *Environment) RunBackground(ctx context.Context) {
	go func() { _ = e.Run(ctx) }()
}

// Shutdown stops every registered runtime.
func (e *Environment) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rt := range e.runtimes {
		rt.Stop()
	}
}
