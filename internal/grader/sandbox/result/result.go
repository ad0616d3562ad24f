// Package result defines sandbox execution results and the failure taxonomy.
package result

// FailureKind classifies why an execution did not produce usable output.
// Callers must be able to tell "does not compile" from "wrong answer"
// from "crashed" from "the sandbox itself broke".
type FailureKind string

const (
	FailureCompile        FailureKind = "compile_error"
	FailureRuntime        FailureKind = "runtime_error"
	FailureTimeout        FailureKind = "timeout"
	FailureOutputTooLarge FailureKind = "output_too_large"
	FailureInfrastructure FailureKind = "infrastructure_error"
)

// RunResult captures raw sandbox execution data for one step.
type RunResult struct {
	ExitCode   int
	TimeMs     int64
	WallTimeMs int64
	MemoryKB   int64
	OutputKB   int64
	Stdout     string
	Stderr     string
	TimedOut   bool
	OomKilled  bool
}

// ExecutionResult is the outcome of one (code, stdin, language) execution.
// Exactly one of the variants is populated: OK carries stdout/stderr/exit
// code, not-OK carries the failure kind and reason.
type ExecutionResult struct {
	OK       bool
	Stdout   string
	Stderr   string
	ExitCode int

	FailureKind FailureKind
	Reason      string
}

// Success builds the success variant.
func Success(stdout, stderr string, exitCode int) ExecutionResult {
	return ExecutionResult{OK: true, Stdout: stdout, Stderr: stderr, ExitCode: exitCode}
}

// Failure builds the failure variant.
func Failure(kind FailureKind, reason string) ExecutionResult {
	return ExecutionResult{OK: false, FailureKind: kind, Reason: reason}
}
