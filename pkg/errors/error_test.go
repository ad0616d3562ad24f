package errors_test

import (
	"fmt"
	"testing"

	"bugdojo/pkg/errors"
)

func TestSlugMapping(t *testing.T) {
	cases := []struct {
		code errors.ErrorCode
		slug string
	}{
		{errors.UnsupportedLanguage, "unsupported_language"},
		{errors.InvalidCode, "invalid_code"},
		{errors.InvalidInput, "invalid_input"},
		{errors.InvalidAIJSON, "invalid_ai_json"},
		{errors.InvalidAISchema, "invalid_ai_schema"},
		{errors.RunFailed, "run_failed"},
		{errors.ProblemNotFound, "problem_not_found"},
		{errors.ErrorCode(99999), "internal_error"},
	}
	for _, tc := range cases {
		if got := tc.code.Slug(); got != tc.slug {
			t.Errorf("Slug(%d) = %q, want %q", tc.code, got, tc.slug)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code   errors.ErrorCode
		status int
	}{
		{errors.Success, 200},
		{errors.UnsupportedLanguage, 400},
		{errors.InvalidCode, 400},
		{errors.InvalidInput, 400},
		{errors.InvalidParams, 400},
		{errors.ProblemNotFound, 404},
		{errors.InvalidAIJSON, 502},
		{errors.InvalidAISchema, 502},
		{errors.RunFailed, 500},
		{errors.GenerateFailed, 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.status {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestWrapPreservesUnderlying(t *testing.T) {
	base := fmt.Errorf("disk full")
	wrapped := errors.Wrap(base, errors.ProblemStoreFailed)

	if errors.GetCode(wrapped) != errors.ProblemStoreFailed {
		t.Fatalf("code = %d", errors.GetCode(wrapped))
	}
	if wrapped.Unwrap() != base {
		t.Fatal("underlying error lost")
	}
	if wrapped.Error() != "disk full" {
		t.Errorf("message = %q", wrapped.Error())
	}
}

func TestGetCodeOnForeignError(t *testing.T) {
	if got := errors.GetCode(fmt.Errorf("plain")); got != errors.InternalServerError {
		t.Errorf("code = %d", got)
	}
	if got := errors.GetCode(nil); got != errors.Success {
		t.Errorf("nil code = %d", got)
	}
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.UnsupportedLanguage).WithDetail("language", "cobol")
	if err.Details["language"] != "cobol" {
		t.Fatalf("details = %v", err.Details)
	}
}
