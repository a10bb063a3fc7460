package sandbox

import (
	"github.com/haasonsaas/nexus/internal/agent"
)

// Register builds the sandbox executor and adds it to tools.
func Register(tools *agent.ToolRegistry, opts ...Option) error {
	executor, err := NewExecutor(opts...)
	if err != nil {
		return err
	}

	tools.Register(executor)
	return nil
}

// MustRegister registers the sandbox executor and panics on error.
// Use this in initialization code where errors should be fatal.
func MustRegister(tools *agent.ToolRegistry, opts ...Option) {
	if err := Register(tools, opts...); err != nil {
		panic(err)
	}
}
