//go:build linux

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"bugdojo/internal/grader/sandbox/spec"
)

const defaultCgroupRoot = "/sys/fs/cgroup/bugdojo"

// createRunCgroup creates one cgroup per engine Run call. The name carries a
// unique suffix because concurrent steps of one request share requestID and
// stepID; the request grouping lives in the engine's registry, not the path.
func createRunCgroup(root, requestID, stepID string) (string, func(), error) {
	if root == "" {
		root = defaultCgroupRoot
	}
	cgroupPath := filepath.Join(root, fmt.Sprintf("%s-%s-%s", requestID, stepID, uuid.NewString()))
	if err := os.MkdirAll(cgroupPath, 0o755); err != nil {
		return "", nil, err
	}
	cleanup := func() {
		_ = os.Remove(cgroupPath)
	}
	return cgroupPath, cleanup, nil
}

func applyCgroupLimits(cgroupPath string, limits spec.ResourceLimit) error {
	if limits.PIDs > 0 {
		if err := writeCgroupFile(cgroupPath, "pids.max", strconv.FormatInt(limits.PIDs, 10)); err != nil {
			return err
		}
	}
	if limits.MemoryMB > 0 {
		memBytes := limits.MemoryMB * 1024 * 1024
		if err := writeCgroupFile(cgroupPath, "memory.max", strconv.FormatInt(memBytes, 10)); err != nil {
			return err
		}
		// Disable swap so memory.max is a hard ceiling.
		if err := writeCgroupFile(cgroupPath, "memory.swap.max", "0"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if limits.CPUTimeMs > 0 {
		// One full core; CPU time budget is enforced by rlimit and the watchdog.
		if err := writeCgroupFile(cgroupPath, "cpu.max", "100000 100000"); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func addProcessToCgroup(cgroupPath string, pid int) error {
	return writeCgroupFile(cgroupPath, "cgroup.procs", strconv.Itoa(pid))
}

func killCgroup(cgroupPath string) error {
	if cgroupPath == "" {
		return nil
	}
	return writeCgroupFile(cgroupPath, "cgroup.kill", "1")
}

func memoryPeakKB(cgroupPath string, state *os.ProcessState) int64 {
	if cgroupPath != "" {
		data, err := os.ReadFile(filepath.Join(cgroupPath, "memory.peak"))
		if err == nil {
			peak, perr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
			if perr == nil {
				return peak / 1024
			}
		}
	}
	return maxRSSKB(state)
}

func wasOomKilled(cgroupPath string) bool {
	if cgroupPath == "" {
		return false
	}
	data, err := os.ReadFile(filepath.Join(cgroupPath, "memory.events"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "oom_kill" {
			count, _ := strconv.Atoi(fields[1])
			return count > 0
		}
	}
	return false
}

func writeCgroupFile(cgroupPath, name, value string) error {
	return os.WriteFile(filepath.Join(cgroupPath, name), []byte(value), 0o644)
}
