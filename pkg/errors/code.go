package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Execution & Sandbox errors
// 12000-12999: Problem & Grading errors
// 13000-13999: Authoring & Generation errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Execution & Sandbox Errors (11000-11999) ==========

	// Submission input (11000-11099)
	UnsupportedLanguage ErrorCode = 11000
	InvalidCode         ErrorCode = 11001
	InvalidInput        ErrorCode = 11002

	// Execution outcomes (11100-11199)
	CompileError     ErrorCode = 11100
	RuntimeError     ErrorCode = 11101
	ExecTimeout      ErrorCode = 11102
	OutputTooLarge   ErrorCode = 11103
	SandboxStartFail ErrorCode = 11104
	RunFailed        ErrorCode = 11105

	// ========== Problem & Grading Errors (12000-12999) ==========

	ProblemNotFound    ErrorCode = 12000
	ProblemStoreFailed ErrorCode = 12001
	GradeFailed        ErrorCode = 12100
	ReportPublishFail  ErrorCode = 12101

	// ========== Authoring & Generation Errors (13000-13999) ==========

	InvalidAIJSON   ErrorCode = 13000
	InvalidAISchema ErrorCode = 13001
	GenerateFailed  ErrorCode = 13002
	UpstreamTimeout ErrorCode = 13003
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	CacheError: "Cache operation failed",

	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	UnsupportedLanguage: "Programming language not supported",
	InvalidCode:         "Code is missing or exceeds the size limit",
	InvalidInput:        "Input is missing or exceeds the size limit",

	CompileError:     "Compilation error",
	RuntimeError:     "Runtime error",
	ExecTimeout:      "Execution time limit exceeded",
	OutputTooLarge:   "Output limit exceeded",
	SandboxStartFail: "Sandbox could not be started",
	RunFailed:        "Execution failed",

	ProblemNotFound:    "Problem not found",
	ProblemStoreFailed: "Failed to store problem",
	GradeFailed:        "Grading failed",
	ReportPublishFail:  "Failed to publish grade report",

	InvalidAIJSON:   "Generator returned unparsable JSON",
	InvalidAISchema: "Generator output did not match any known shape",
	GenerateFailed:  "Problem generation failed",
	UpstreamTimeout: "Generator request timed out",
}

// errorSlugs maps error codes to the short machine-readable codes surfaced
// in HTTP responses.
var errorSlugs = map[ErrorCode]string{
	InternalServerError: "internal_error",
	InvalidParams:       "invalid_params",
	NotFound:            "not_found",
	TooManyRequests:     "too_many_requests",
	ServiceUnavailable:  "service_unavailable",
	Timeout:             "timeout",

	UnsupportedLanguage: "unsupported_language",
	InvalidCode:         "invalid_code",
	InvalidInput:        "invalid_input",

	CompileError:     "compile_error",
	RuntimeError:     "runtime_error",
	ExecTimeout:      "timeout",
	OutputTooLarge:   "output_too_large",
	SandboxStartFail: "infrastructure_error",
	RunFailed:        "run_failed",

	ProblemNotFound: "problem_not_found",
	GradeFailed:     "grade_failed",

	InvalidAIJSON:   "invalid_ai_json",
	InvalidAISchema: "invalid_ai_schema",
	GenerateFailed:  "generate_failed",
	UpstreamTimeout: "upstream_timeout",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Slug returns the short machine-readable code for the error code
func (c ErrorCode) Slug() string {
	if slug, ok := errorSlugs[c]; ok {
		return slug
	}
	return "internal_error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == ProblemNotFound, c == RecordNotFound:
		return 404
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == InvalidAIJSON, c == InvalidAISchema:
		return 502
	case c >= 11000 && c < 11100: // submission input errors
		return 400
	case c >= 10300 && c < 10400: // validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
