//go:build !linux

package engine

import (
	"context"
	"fmt"

	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/sandbox/spec"
)

type stubEngine struct{}

// NewEngine returns an engine that refuses to run. The sandbox depends on
// Linux namespaces and cgroup v2, so other platforms only get far enough to
// compile and run the pure-Go test suite.
func NewEngine(_ Config, _ ProfileResolver) (Engine, error) {
	return stubEngine{}, nil
}

func (stubEngine) Run(_ context.Context, _ spec.RunSpec) (result.RunResult, error) {
	return result.RunResult{}, fmt.Errorf("sandbox engine is only supported on linux")
}

func (stubEngine) KillRequest(_ context.Context, _ string) error {
	return fmt.Errorf("sandbox engine is only supported on linux")
}
