package sandbox_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/engine"
	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/sandbox/spec"
	errs "bugdojo/pkg/errors"
)

// fakeEngine records run specs and answers with canned results per step.
type fakeEngine struct {
	results map[string]result.RunResult
	errs    map[string]error
	specs   []spec.RunSpec
	killed  []string
}

func (f *fakeEngine) Run(_ context.Context, runSpec spec.RunSpec) (result.RunResult, error) {
	f.specs = append(f.specs, runSpec)
	if err := f.errs[runSpec.StepID]; err != nil {
		return result.RunResult{}, err
	}
	return f.results[runSpec.StepID], nil
}

func (f *fakeEngine) KillRequest(_ context.Context, requestID string) error {
	f.killed = append(f.killed, requestID)
	return nil
}

var _ engine.Engine = (*fakeEngine)(nil)

func newExecutor(t *testing.T, eng engine.Engine) *sandbox.Executor {
	t.Helper()
	return sandbox.NewExecutor(sandbox.Config{WorkDir: t.TempDir(), MaxConcurrent: 2}, eng)
}

func req(language, code, stdin string) sandbox.ExecutionRequest {
	return sandbox.ExecutionRequest{RequestID: "req-1", Language: language, Code: code, Stdin: stdin}
}

func TestExecutePythonSuccess(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: 0, Stdout: "hello\n"},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "print('hello')", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK || res.Stdout != "hello\n" {
		t.Fatalf("res = %+v", res)
	}
	if len(eng.specs) != 1 || eng.specs[0].StepID != "run" {
		t.Fatalf("specs = %+v, want single run step", eng.specs)
	}
	if eng.specs[0].Profile != "python-run" {
		t.Errorf("profile = %q", eng.specs[0].Profile)
	}
}

func TestExecuteCRunsCompileFirst(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"compile": {ExitCode: 0},
		"run":     {ExitCode: 0, Stdout: "ok"},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("c", "int main(){return 0;}", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK {
		t.Fatalf("res = %+v", res)
	}
	if len(eng.specs) != 2 || eng.specs[0].StepID != "compile" || eng.specs[1].StepID != "run" {
		t.Fatalf("steps = %+v", eng.specs)
	}
	if got := eng.specs[0].Cmd[0]; got != "gcc" {
		t.Errorf("compile argv starts with %q", got)
	}
}

func TestExecuteCompileErrorStopsBeforeRun(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"compile": {ExitCode: 1, Stderr: "main.c:1: error: expected ';'"},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("c", "int main({", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OK || res.FailureKind != result.FailureCompile {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Reason, "expected ';'") {
		t.Errorf("reason = %q", res.Reason)
	}
	if len(eng.specs) != 1 {
		t.Fatal("run step must not execute after a compile error")
	}
}

func TestExecuteTimeout(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: -1, TimedOut: true},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "while True: pass", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureTimeout {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Reason, "2000ms") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestExecuteOutputTooLarge(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: 0, OutputKB: 4096},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "print('x'*10**9)", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureOutputTooLarge {
		t.Fatalf("res = %+v", res)
	}
}

func TestExecuteOutputAtCapWithAbnormalExit(t *testing.T) {
	// The fsize rlimit truncates stdout at exactly the cap and kills the
	// writer, so the engine reports the cap size with a non-zero exit.
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: -1, OutputKB: 1024},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "print('x'*10**7)", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureOutputTooLarge {
		t.Fatalf("res = %+v, want output_too_large", res)
	}
}

func TestExecuteOutputAtCapWithCleanExitSucceeds(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: 0, OutputKB: 1024, Stdout: "big but legal"},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "print('x')", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK {
		t.Fatalf("res = %+v, want success", res)
	}
}

func TestExecuteOomIsRuntimeError(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{
		"run": {ExitCode: -1, OomKilled: true},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "x = 'a'*10**12", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureRuntime {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(res.Reason, "memory") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestExecuteEngineFailureIsInfrastructure(t *testing.T) {
	eng := &fakeEngine{errs: map[string]error{"run": errors.New("helper missing")}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("python", "print(1)", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureInfrastructure {
		t.Fatalf("res = %+v", res)
	}
}

func TestExecuteRejectsBadInputBeforeSandbox(t *testing.T) {
	eng := &fakeEngine{}
	exec := newExecutor(t, eng)
	ctx := context.Background()

	cases := []struct {
		name string
		req  sandbox.ExecutionRequest
		code errs.ErrorCode
	}{
		{"unsupported language", req("brainfuck", "+", ""), errs.UnsupportedLanguage},
		{"empty code", req("python", "   ", ""), errs.InvalidCode},
		{"oversized code", req("python", strings.Repeat("x", sandbox.MaxCodeBytes+1), ""), errs.InvalidCode},
		{"oversized stdin", req("python", "print(1)", strings.Repeat("x", sandbox.MaxStdinBytes+1)), errs.InvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := exec.Execute(ctx, tc.req)
			if errs.GetCode(err) != tc.code {
				t.Fatalf("err = %v, want code %d", err, tc.code)
			}
		})
	}
	if len(eng.specs) != 0 {
		t.Fatal("invalid requests must never reach the engine")
	}
}

func TestCompileDiagnosticsTruncateOnRuneBoundary(t *testing.T) {
	// A multi-byte rune straddling the 4000-byte diagnostic cap must not be
	// split into invalid UTF-8.
	stderr := strings.Repeat("a", 3999) + "é"
	eng := &fakeEngine{results: map[string]result.RunResult{
		"compile": {ExitCode: 1, Stderr: stderr},
	}}
	exec := newExecutor(t, eng)

	res, err := exec.Execute(context.Background(), req("c", "int main({", ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.FailureKind != result.FailureCompile {
		t.Fatalf("res = %+v", res)
	}
	if !utf8.ValidString(res.Reason) {
		t.Fatal("truncated diagnostics are not valid UTF-8")
	}
	if len(res.Reason) != 3999 {
		t.Errorf("reason length = %d, want 3999", len(res.Reason))
	}
}

func TestExecuteCleansWorkDir(t *testing.T) {
	eng := &fakeEngine{results: map[string]result.RunResult{"run": {ExitCode: 0}}}
	workRoot := t.TempDir()
	exec := sandbox.NewExecutor(sandbox.Config{WorkDir: workRoot, MaxConcurrent: 1}, eng)

	if _, err := exec.Execute(context.Background(), req("python", "print(1)", "stdin data")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work root not cleaned: %v", entries)
	}
}
