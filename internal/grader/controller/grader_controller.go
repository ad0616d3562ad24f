// Package controller exposes the grading engine over HTTP.
package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/sandbox/toolchain"
	"bugdojo/internal/grader/service"
	errs "bugdojo/pkg/errors"
	"bugdojo/pkg/utils/response"
)

// GraderController handles execute, grade and authoring endpoints.
type GraderController struct {
	executor     service.Executor
	gradeService *service.GradeService
	authors      *service.AuthorService
}

// NewGraderController creates a new GraderController.
func NewGraderController(executor service.Executor, gradeService *service.GradeService, authors *service.AuthorService) *GraderController {
	return &GraderController{
		executor:     executor,
		gradeService: gradeService,
		authors:      authors,
	}
}

// RegisterRoutes mounts every grader endpoint on the group.
func (h *GraderController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/execute", h.Execute)
	api.POST("/submissions", h.Grade)
	api.POST("/problems/generate", h.Generate)
}

// Execute runs one piece of code against one stdin.
func (h *GraderController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	res, err := h.executor.Execute(c.Request.Context(), sandbox.ExecutionRequest{
		RequestID: uuid.NewString(),
		Language:  req.Language,
		Code:      req.Code,
		Stdin:     req.Input,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if res.OK {
		response.Success(c, ExecuteResponse{
			OK:       true,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		})
		return
	}
	if res.FailureKind == result.FailureInfrastructure {
		response.ErrorWithCode(c, errs.RunFailed, res.Reason)
		return
	}
	response.Success(c, ExecuteResponse{
		OK:    false,
		Error: string(res.FailureKind) + ": " + res.Reason,
	})
}

// Grade grades a submission against a stored problem. Full success collapses
// to the short pass shape; any failure returns the complete per-case report.
func (h *GraderController) Grade(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	report, err := h.gradeService.GradeSubmission(c.Request.Context(), req.ProblemID, req.Language, req.UserCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	if report.Pass {
		response.Success(c, PassResponse{
			Pass:    true,
			Message: "all cases passed",
		})
		return
	}
	response.Success(c, report)
}

// Generate asks the external collaborator for a buggy problem and confirms
// the bug by executing the authored case.
func (h *GraderController) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if _, ok := toolchain.Lookup(req.Language); !ok {
		response.ErrorWithCode(c, errs.UnsupportedLanguage, "")
		return
	}

	authored, err := h.authors.GenerateAndConfirm(c.Request.Context(), req.Language, req.Topic)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, authored)
}

// ExecuteRequest is one ad hoc execution.
type ExecuteRequest struct {
	Language string `json:"language" binding:"required"`
	Code     string `json:"code" binding:"required"`
	Input    string `json:"input"`
}

// ExecuteResponse mirrors the execution result.
type ExecuteResponse struct {
	OK       bool   `json:"ok"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exitCode"`
	Error    string `json:"error,omitempty"`
}

// GradeRequest grades user code against a problem.
type GradeRequest struct {
	ProblemID string `json:"problemId" binding:"required"`
	Language  string `json:"language" binding:"required"`
	UserCode  string `json:"userCode" binding:"required"`
}

// PassResponse is the shortcut shape for a fully passing submission.
type PassResponse struct {
	Pass    bool   `json:"pass"`
	Message string `json:"message"`
}

// GenerateRequest asks for one authored problem.
type GenerateRequest struct {
	Language string `json:"language" binding:"required"`
	Topic    string `json:"topic"`
}
