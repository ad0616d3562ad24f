package toolchain_test

import (
	"strings"
	"testing"

	"bugdojo/internal/grader/sandbox/toolchain"
)

func TestLookup(t *testing.T) {
	for _, lang := range []string{"c", "python", "C", " Python "} {
		if _, ok := toolchain.Lookup(lang); !ok {
			t.Errorf("Lookup(%q) not found", lang)
		}
	}
	if _, ok := toolchain.Lookup("rust"); ok {
		t.Error("rust must not be registered")
	}
}

func TestCCommandExpansion(t *testing.T) {
	tc, _ := toolchain.Lookup("c")
	if !tc.NeedsCompile() {
		t.Fatal("c must have a compile step")
	}

	compile, err := tc.CompileCmd("/work/run-1")
	if err != nil {
		t.Fatalf("CompileCmd: %v", err)
	}
	want := []string{"gcc", "-O2", "-std=c11", "/work/run-1/main.c", "-o", "/work/run-1/main"}
	if strings.Join(compile, " ") != strings.Join(want, " ") {
		t.Fatalf("compile argv = %v, want %v", compile, want)
	}

	run, err := tc.RunCmd("/work/run-1")
	if err != nil {
		t.Fatalf("RunCmd: %v", err)
	}
	if len(run) != 1 || run[0] != "/work/run-1/main" {
		t.Fatalf("run argv = %v", run)
	}
}

func TestPythonCommandExpansion(t *testing.T) {
	tc, _ := toolchain.Lookup("python")
	if tc.NeedsCompile() {
		t.Fatal("python must not have a compile step")
	}
	run, err := tc.RunCmd("/work/run-2")
	if err != nil {
		t.Fatalf("RunCmd: %v", err)
	}
	if len(run) != 2 || run[0] != "python3" || run[1] != "/work/run-2/main.py" {
		t.Fatalf("run argv = %v", run)
	}
}

func TestRunTimeoutsDistinctFromCompile(t *testing.T) {
	tc, _ := toolchain.Lookup("c")
	if tc.CompileLimits.WallTimeMs <= tc.RunLimits.WallTimeMs {
		t.Fatalf("compile timeout %dms must exceed run timeout %dms",
			tc.CompileLimits.WallTimeMs, tc.RunLimits.WallTimeMs)
	}
	if tc.RunLimits.WallTimeMs != 2000 {
		t.Errorf("run timeout = %dms", tc.RunLimits.WallTimeMs)
	}
	if tc.RunLimits.MemoryMB != 256 {
		t.Errorf("memory limit = %dMB", tc.RunLimits.MemoryMB)
	}
}

func TestResolver(t *testing.T) {
	r := toolchain.Resolver{SeccompProfiles: toolchain.DefaultSeccompProfiles()}

	profile, err := r.Resolve(toolchain.RunProfile("python"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !profile.DisableNetwork {
		t.Error("sandboxed runs must have networking disabled")
	}
	if profile.SeccompProfile != "run.json" {
		t.Errorf("seccomp profile = %q", profile.SeccompProfile)
	}

	if _, err := r.Resolve("rust-run"); err == nil {
		t.Error("unknown language profile must not resolve")
	}
	if _, err := r.Resolve("garbage"); err == nil {
		t.Error("malformed profile name must not resolve")
	}
}
