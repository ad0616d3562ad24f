//go:build linux

package engine

import (
	"os"
	"strings"
	"syscall"
	"time"

	"bugdojo/internal/grader/sandbox/spec"
)

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func cpuTimeMs(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok || usage == nil {
		return 0
	}
	user := time.Duration(usage.Utime.Sec)*time.Second + time.Duration(usage.Utime.Usec)*time.Microsecond
	sys := time.Duration(usage.Stime.Sec)*time.Second + time.Duration(usage.Stime.Usec)*time.Microsecond
	return (user + sys).Milliseconds()
}

func maxRSSKB(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok || usage == nil {
		return 0
	}
	return usage.Maxrss
}

func stdoutSizeKB(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	size := info.Size()
	if size == 0 {
		return 0
	}
	return (size + 1023) / 1024
}

func readLimitedFile(path string, maxBytes int64) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, maxBytes)
	n, _ := f.Read(buf)
	return string(buf[:n])
}

// resolveHostPath maps a path the sandboxed process sees back to the host.
// StdoutPath and StderrPath are given relative to the work dir, which becomes
// the sandbox root, so a path under a bind mount target is translated via its
// source and anything else is joined to the work dir.
func resolveHostPath(path string, runSpec spec.RunSpec) string {
	if path == "" {
		return ""
	}
	for _, mount := range runSpec.BindMounts {
		if strings.HasPrefix(path, mount.Target) {
			return mount.Source + strings.TrimPrefix(path, mount.Target)
		}
	}
	if strings.HasPrefix(path, "/") {
		return runSpec.WorkDir + path
	}
	return runSpec.WorkDir + "/" + path
}
