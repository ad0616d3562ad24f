// Package contextkey defines typed context keys shared across layers.
package contextkey

type key string

const (
	// TraceID identifies one request across log lines and responses.
	TraceID key = "trace_id"
	// RequestID identifies one inbound HTTP request.
	RequestID key = "request_id"
	// SubmissionID identifies one grading run.
	SubmissionID key = "submission_id"
)
