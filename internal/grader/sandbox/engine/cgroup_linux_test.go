//go:build linux

package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bugdojo/internal/grader/sandbox/spec"
)

func TestCreateRunCgroupUniquePerCall(t *testing.T) {
	root := t.TempDir()

	// Concurrent cases of one submission share request id and step id; each
	// call must still get its own cgroup.
	first, cleanupFirst, err := createRunCgroup(root, "sub-1", "run")
	if err != nil {
		t.Fatalf("first createRunCgroup: %v", err)
	}
	second, cleanupSecond, err := createRunCgroup(root, "sub-1", "run")
	if err != nil {
		t.Fatalf("second createRunCgroup: %v", err)
	}
	if first == second {
		t.Fatalf("both calls returned %q", first)
	}
	for _, path := range []string{first, second} {
		if !strings.HasPrefix(filepath.Base(path), "sub-1-run-") {
			t.Errorf("cgroup name %q lost the request-step prefix", filepath.Base(path))
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("cgroup dir %q: %v", path, err)
		}
	}

	cleanupFirst()
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Error("first cleanup did not remove its cgroup")
	}
	if _, err := os.Stat(second); err != nil {
		t.Error("first cleanup removed the second cgroup")
	}
	cleanupSecond()
}

func TestApplyCgroupLimits(t *testing.T) {
	root := t.TempDir()
	cgroupPath, cleanup, err := createRunCgroup(root, "sub-2", "run")
	if err != nil {
		t.Fatalf("createRunCgroup: %v", err)
	}
	defer cleanup()

	limits := spec.ResourceLimit{CPUTimeMs: 2000, MemoryMB: 256, PIDs: 16}
	if err := applyCgroupLimits(cgroupPath, limits); err != nil {
		t.Fatalf("applyCgroupLimits: %v", err)
	}

	read := func(name string) string {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(cgroupPath, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	if got := read("pids.max"); got != "16" {
		t.Errorf("pids.max = %q", got)
	}
	if got := read("memory.max"); got != "268435456" {
		t.Errorf("memory.max = %q", got)
	}
	if got := read("memory.swap.max"); got != "0" {
		t.Errorf("memory.swap.max = %q", got)
	}
}

func TestUnregisterCgroupRemovesOnlyOnePath(t *testing.T) {
	e := &linuxEngine{registry: make(map[string][]string)}
	e.registerCgroup("sub-3", "/cg/sub-3-run-a")
	e.registerCgroup("sub-3", "/cg/sub-3-run-b")

	e.unregisterCgroup("sub-3", "/cg/sub-3-run-a")
	remaining := e.snapshotCgroups("sub-3")
	if len(remaining) != 1 || remaining[0] != "/cg/sub-3-run-b" {
		t.Fatalf("registry = %v, want the second path kept", remaining)
	}

	e.unregisterCgroup("sub-3", "/cg/sub-3-run-b")
	if got := e.snapshotCgroups("sub-3"); len(got) != 0 {
		t.Fatalf("registry = %v, want empty", got)
	}
}
