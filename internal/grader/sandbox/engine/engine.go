package engine

import (
	"context"

	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/sandbox/spec"
)

// Engine executes a RunSpec inside an isolated sandbox.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RunResult, error)
	KillRequest(ctx context.Context, requestID string) error
}
