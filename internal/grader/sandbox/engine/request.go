package engine

import (
	"bugdojo/internal/grader/sandbox/security"
	"bugdojo/internal/grader/sandbox/spec"
)

// initRequest is the JSON handed to the sandbox-init helper on stdin.
// Field names are the wire contract with cmd/sandbox-init.
type initRequest struct {
	RunSpec       spec.RunSpec
	Isolation     security.IsolationProfile
	EnableSeccomp bool
	EnableCgroup  bool
	EnableNs      bool
}
