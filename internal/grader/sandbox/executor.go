// Package sandbox runs untrusted code inside isolated, resource-capped
// environments and classifies the outcome.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"bugdojo/internal/grader/sandbox/engine"
	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/sandbox/spec"
	"bugdojo/internal/grader/sandbox/toolchain"
	errs "bugdojo/pkg/errors"
	"bugdojo/pkg/utils/logger"
)

const (
	// MaxCodeBytes caps submitted source size. Checked before any sandbox
	// is created.
	MaxCodeBytes = 200_000
	// MaxStdinBytes caps per-case stdin size.
	MaxStdinBytes = 50_000

	// errorTextCap bounds compiler diagnostics and stderr carried in a
	// failure reason.
	errorTextCap = 4000

	stdoutFile = "stdout.txt"
	stderrFile = "stderr.txt"
	stdinFile  = "input.txt"
)

// ExecutionRequest is one (language, code, stdin) execution.
type ExecutionRequest struct {
	RequestID string
	Language  string
	Code      string
	Stdin     string
}

// Executor validates requests, provisions a scoped work dir, and drives the
// engine through the toolchain's compile and run steps.
type Executor struct {
	engine  engine.Engine
	limiter *SlotLimiter
	workdir string
}

// Config tunes the executor.
type Config struct {
	// WorkDir is the parent for per-request temporary directories.
	// Empty means the OS default temp dir.
	WorkDir string `yaml:"work_dir"`
	// MaxConcurrent caps sandboxes alive at once across the process.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DefaultConfig returns executor defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 4}
}

// NewExecutor creates an executor on top of a sandbox engine.
func NewExecutor(cfg Config, eng engine.Engine) *Executor {
	return &Executor{
		engine:  eng,
		limiter: NewSlotLimiter(cfg.MaxConcurrent),
		workdir: cfg.WorkDir,
	}
}

// ValidateRequest checks language and size constraints. It is exposed so the
// HTTP layer can reject bad input with a precise error code before queueing.
func ValidateRequest(req ExecutionRequest) error {
	if _, ok := toolchain.Lookup(req.Language); !ok {
		return errs.New(errs.UnsupportedLanguage).WithDetail("language", req.Language)
	}
	if strings.TrimSpace(req.Code) == "" {
		return errs.New(errs.InvalidCode).WithMessage("code must not be empty")
	}
	if len(req.Code) > MaxCodeBytes {
		return errs.New(errs.InvalidCode).WithMessagef("code exceeds %d characters", MaxCodeBytes)
	}
	if len(req.Stdin) > MaxStdinBytes {
		return errs.New(errs.InvalidInput).WithMessagef("input exceeds %d characters", MaxStdinBytes)
	}
	return nil
}

// Execute runs one request end to end. Validation failures return an error;
// everything that happens inside the sandbox is reported as data in the
// ExecutionResult, never as an error.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) (result.ExecutionResult, error) {
	if err := ValidateRequest(req); err != nil {
		return result.ExecutionResult{}, err
	}
	tc, _ := toolchain.Lookup(req.Language)

	if err := e.limiter.Acquire(ctx); err != nil {
		return result.ExecutionResult{}, errs.Wrap(err, errs.SandboxStartFail)
	}
	defer e.limiter.Release()

	workDir, err := os.MkdirTemp(e.workdir, "run-*")
	if err != nil {
		return result.Failure(result.FailureInfrastructure, "could not create work dir"), nil
	}
	defer os.RemoveAll(workDir)

	if err := os.WriteFile(filepath.Join(workDir, tc.SourceFile), []byte(req.Code), 0o644); err != nil {
		return result.Failure(result.FailureInfrastructure, "could not write source"), nil
	}
	if err := os.WriteFile(filepath.Join(workDir, stdinFile), []byte(req.Stdin), 0o644); err != nil {
		return result.Failure(result.FailureInfrastructure, "could not write stdin"), nil
	}

	if tc.NeedsCompile() {
		if res, ok := e.compile(ctx, req, tc, workDir); !ok {
			return res, nil
		}
	}

	return e.run(ctx, req, tc, workDir), nil
}

// Kill terminates every in-flight sandbox belonging to a request.
func (e *Executor) Kill(ctx context.Context, requestID string) error {
	return e.engine.KillRequest(ctx, requestID)
}

func (e *Executor) compile(ctx context.Context, req ExecutionRequest, tc toolchain.Toolchain, workDir string) (result.ExecutionResult, bool) {
	argv, err := tc.CompileCmd(workDir)
	if err != nil {
		return result.Failure(result.FailureInfrastructure, "bad compile command"), false
	}
	runSpec := spec.RunSpec{
		RequestID:  req.RequestID,
		StepID:     "compile",
		WorkDir:    workDir,
		Cmd:        argv,
		StdoutPath: stdoutFile,
		StderrPath: stderrFile,
		Profile:    toolchain.CompileProfile(tc.Language),
		Limits:     tc.CompileLimits,
	}
	res, err := e.engine.Run(ctx, runSpec)
	if err != nil {
		logger.Error(ctx, "compile sandbox failed", zap.String("request_id", req.RequestID), zap.Error(err))
		return result.Failure(result.FailureInfrastructure, "sandbox could not be started"), false
	}
	if res.TimedOut {
		return result.Failure(result.FailureCompile, fmt.Sprintf("compilation timed out after %dms", tc.CompileLimits.WallTimeMs)), false
	}
	if res.ExitCode != 0 {
		return result.Failure(result.FailureCompile, truncateText(res.Stderr, errorTextCap)), false
	}
	return result.ExecutionResult{}, true
}

func (e *Executor) run(ctx context.Context, req ExecutionRequest, tc toolchain.Toolchain, workDir string) result.ExecutionResult {
	argv, err := tc.RunCmd(workDir)
	if err != nil {
		return result.Failure(result.FailureInfrastructure, "bad run command")
	}
	runSpec := spec.RunSpec{
		RequestID:  req.RequestID,
		StepID:     "run",
		WorkDir:    workDir,
		Cmd:        argv,
		StdinPath:  stdinFile,
		StdoutPath: stdoutFile,
		StderrPath: stderrFile,
		Profile:    toolchain.RunProfile(tc.Language),
		Limits:     tc.RunLimits,
	}
	res, err := e.engine.Run(ctx, runSpec)
	if err != nil {
		logger.Error(ctx, "run sandbox failed", zap.String("request_id", req.RequestID), zap.Error(err))
		return result.Failure(result.FailureInfrastructure, "sandbox could not be started")
	}
	return classifyRun(res, tc)
}

// classifyRun maps raw sandbox data onto the failure taxonomy. Order matters:
// a timed-out process usually also dies with a non-zero exit, and an
// OOM-killed one looks like a plain signal death.
func classifyRun(res result.RunResult, tc toolchain.Toolchain) result.ExecutionResult {
	switch {
	case res.TimedOut:
		return result.Failure(result.FailureTimeout, fmt.Sprintf("time limit exceeded (%dms)", tc.RunLimits.WallTimeMs))
	case exceedsOutputLimit(res, tc.RunLimits):
		return result.Failure(result.FailureOutputTooLarge, "output limit exceeded")
	case res.OomKilled:
		return result.Failure(result.FailureRuntime, fmt.Sprintf("memory limit exceeded (%dMB)", tc.RunLimits.MemoryMB))
	case res.ExitCode != 0:
		reason := truncateText(res.Stderr, errorTextCap)
		if reason == "" {
			reason = fmt.Sprintf("process exited with code %d", res.ExitCode)
		}
		return result.Failure(result.FailureRuntime, reason)
	default:
		return result.Success(res.Stdout, res.Stderr, res.ExitCode)
	}
}

// exceedsOutputLimit is true when stdout crossed the cap. The fsize rlimit
// truncates the file at exactly the cap and kills the writer with SIGXFSZ,
// so an abnormal exit with stdout filled to the cap is a breach too, not
// just a file strictly larger than it.
func exceedsOutputLimit(res result.RunResult, limits spec.ResourceLimit) bool {
	if limits.OutputMB <= 0 {
		return false
	}
	capKB := limits.OutputMB * 1024
	if res.OutputKB > capKB {
		return true
	}
	return res.OutputKB >= capKB && res.ExitCode != 0
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
