// Package toolchain describes how each supported language is compiled and
// executed inside the sandbox. The registry is closed: a language missing
// here is rejected before a sandbox is ever created.
package toolchain

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"bugdojo/internal/grader/sandbox/security"
	"bugdojo/internal/grader/sandbox/spec"
)

// Toolchain binds a language to its on-disk layout, command templates and
// per-step resource limits. Command templates use {src} and {bin}
// placeholders expanded against the sandbox work dir.
type Toolchain struct {
	Language      string
	SourceFile    string
	BinaryFile    string
	CompileCmdTpl string
	RunCmdTpl     string
	CompileLimits spec.ResourceLimit
	RunLimits     spec.ResourceLimit
}

// NeedsCompile reports whether the language has a separate compile step.
func (t Toolchain) NeedsCompile() bool {
	return t.CompileCmdTpl != ""
}

// CompileCmd expands the compile template into an argv.
func (t Toolchain) CompileCmd(workDir string) ([]string, error) {
	return expandCmd(t.CompileCmdTpl, workDir, t.SourceFile, t.BinaryFile)
}

// RunCmd expands the run template into an argv.
func (t Toolchain) RunCmd(workDir string) ([]string, error) {
	return expandCmd(t.RunCmdTpl, workDir, t.SourceFile, t.BinaryFile)
}

func expandCmd(tpl, workDir, srcFile, binFile string) ([]string, error) {
	if tpl == "" {
		return nil, fmt.Errorf("empty command template")
	}
	expanded := strings.ReplaceAll(tpl, "{src}", workDir+"/"+srcFile)
	if binFile != "" {
		expanded = strings.ReplaceAll(expanded, "{bin}", workDir+"/"+binFile)
	}
	argv, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("split command %q: %w", tpl, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command template %q expands to nothing", tpl)
	}
	return argv, nil
}

const (
	LangC      = "c"
	LangPython = "python"

	memoryLimitMB = 256
	stackLimitMB  = 64
	outputLimitMB = 1

	compileWallMs = 4000
	runWallMs     = 2000
)

var registry = map[string]Toolchain{
	LangC: {
		Language:      LangC,
		SourceFile:    "main.c",
		BinaryFile:    "main",
		CompileCmdTpl: "gcc -O2 -std=c11 {src} -o {bin}",
		RunCmdTpl:     "{bin}",
		CompileLimits: spec.ResourceLimit{
			CPUTimeMs:  compileWallMs,
			WallTimeMs: compileWallMs,
			MemoryMB:   512,
			StackMB:    stackLimitMB,
			OutputMB:   8,
			PIDs:       32,
		},
		RunLimits: spec.ResourceLimit{
			CPUTimeMs:  runWallMs,
			WallTimeMs: runWallMs,
			MemoryMB:   memoryLimitMB,
			StackMB:    stackLimitMB,
			OutputMB:   outputLimitMB,
			PIDs:       16,
		},
	},
	LangPython: {
		Language:   LangPython,
		SourceFile: "main.py",
		RunCmdTpl:  "python3 {src}",
		RunLimits: spec.ResourceLimit{
			CPUTimeMs:  runWallMs,
			WallTimeMs: runWallMs,
			MemoryMB:   memoryLimitMB,
			StackMB:    stackLimitMB,
			OutputMB:   outputLimitMB,
			PIDs:       16,
		},
	},
}

// Lookup returns the toolchain for a language, or false if unsupported.
func Lookup(language string) (Toolchain, bool) {
	t, ok := registry[strings.ToLower(strings.TrimSpace(language))]
	return t, ok
}

// Supported lists the registered language names.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Resolver returns sandbox isolation profiles for toolchain steps. Profile
// names follow "<language>-compile" and "<language>-run".
type Resolver struct {
	SeccompProfiles map[string]string
}

// Resolve implements engine.ProfileResolver.
func (r Resolver) Resolve(name string) (security.IsolationProfile, error) {
	lang, _, ok := strings.Cut(name, "-")
	if !ok {
		return security.IsolationProfile{}, fmt.Errorf("unknown profile %q", name)
	}
	if _, known := registry[lang]; !known {
		return security.IsolationProfile{}, fmt.Errorf("unknown profile %q", name)
	}
	return security.IsolationProfile{
		SeccompProfile: r.SeccompProfiles[name],
		DisableNetwork: true,
	}, nil
}

// DefaultSeccompProfiles maps every known profile to its filter file,
// resolved against the engine's seccomp dir. Compile steps get a wider
// filter than run steps.
func DefaultSeccompProfiles() map[string]string {
	return map[string]string{
		CompileProfile(LangC):  "compile.json",
		RunProfile(LangC):      "run.json",
		RunProfile(LangPython): "run.json",
	}
}

// CompileProfile names the compile-step profile for a language.
func CompileProfile(language string) string { return language + "-compile" }

// RunProfile names the run-step profile for a language.
func RunProfile(language string) string { return language + "-run" }
