// Package service implements the grading and authoring flows on top of the
// sandbox executor.
package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bugdojo/internal/grader/generator"
	"bugdojo/internal/grader/model"
	"bugdojo/internal/grader/repository"
	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/result"
	"bugdojo/internal/grader/validator"
	errs "bugdojo/pkg/errors"
	"bugdojo/pkg/utils/logger"
)

// Executor runs one piece of code against one stdin.
type Executor interface {
	Execute(ctx context.Context, req sandbox.ExecutionRequest) (result.ExecutionResult, error)
	Kill(ctx context.Context, requestID string) error
}

// GradeService grades submissions against problems.
type GradeService struct {
	executor  Executor
	problems  repository.ProblemRepository
	publisher repository.ReportPublisher
	archive   repository.SubmissionArchive

	perBase        int
	extraEdgeCount int
	// caseWorkers bounds how many cases of one submission run at once.
	// 1 means strictly sequential.
	caseWorkers int
}

// GradeOptions tunes the orchestrator.
type GradeOptions struct {
	PerBase        int `yaml:"per_base"`
	ExtraEdgeCount int `yaml:"extra_edge_count"`
	CaseWorkers    int `yaml:"case_workers"`
}

// NewGradeService wires the orchestrator. publisher and archive may be nil.
func NewGradeService(executor Executor, problems repository.ProblemRepository,
	publisher repository.ReportPublisher, archive repository.SubmissionArchive,
	opts GradeOptions) *GradeService {
	if opts.PerBase <= 0 {
		opts.PerBase = generator.DefaultPerBase
	}
	if opts.ExtraEdgeCount < 0 {
		opts.ExtraEdgeCount = generator.DefaultExtraEdgeCount
	}
	if opts.CaseWorkers <= 0 {
		opts.CaseWorkers = 1
	}
	return &GradeService{
		executor:       executor,
		problems:       problems,
		publisher:      publisher,
		archive:        archive,
		perBase:        opts.PerBase,
		extraEdgeCount: opts.ExtraEdgeCount,
		caseWorkers:    opts.CaseWorkers,
	}
}

// GradeSubmission looks up the problem and grades userCode against it.
func (s *GradeService) GradeSubmission(ctx context.Context, problemID, language, userCode string) (model.GradeReport, error) {
	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		return model.GradeReport{}, err
	}
	return s.Grade(ctx, problem, language, userCode)
}

// Grade runs every case of the problem, public cases first and hidden cases
// after, and never stops at the first failure: the caller gets the complete
// per-case breakdown.
func (s *GradeService) Grade(ctx context.Context, problem model.Problem, language, userCode string) (model.GradeReport, error) {
	submissionID := uuid.NewString()
	req := sandbox.ExecutionRequest{RequestID: submissionID, Language: language, Code: userCode}
	if err := sandbox.ValidateRequest(req); err != nil {
		return model.GradeReport{}, err
	}

	v, known := validator.Resolve(problem.ValidatorName)
	if !known {
		logger.Warn(ctx, "unknown validator, using default",
			zap.String("problem_id", problem.ID), zap.String("validator", problem.ValidatorName))
	}

	inputs := make([]string, 0, len(problem.PublicCases))
	names := make([]string, 0, len(problem.PublicCases))
	for _, c := range problem.PublicCases {
		inputs = append(inputs, c.Input)
		names = append(names, c.Name)
	}

	// Hidden cases are derived from a seed fixed by (problem, code) so
	// regrading an identical submission yields an identical report.
	rng := rand.New(rand.NewSource(gradeSeed(problem.ID, userCode)))
	hidden := generator.Generate(rng, v.Name(), inputs, s.perBase, s.extraEdgeCount)
	for i, h := range hidden {
		inputs = append(inputs, h)
		names = append(names, fmt.Sprintf("hidden_%d", i+1))
	}

	outcomes, err := s.runCases(ctx, req, v, names, inputs)
	if err != nil {
		// Abort: discard partial outcomes and take down any sandbox
		// still running for this submission.
		_ = s.executor.Kill(context.WithoutCancel(ctx), submissionID)
		return model.GradeReport{}, err
	}

	report := model.NewGradeReport(v.Name(), outcomes)
	if s.publisher != nil {
		s.publisher.PublishGraded(context.WithoutCancel(ctx), repository.GradedEvent{
			SubmissionID: submissionID,
			ProblemID:    problem.ID,
			Language:     language,
			Report:       report,
		})
	}
	if s.archive != nil {
		s.archive.Archive(context.WithoutCancel(ctx), submissionID, language, userCode, report)
	}
	return report, nil
}

// runCases executes every case and joins the outcomes back into case order.
// Workers above 1 fan cases out; the executor's slot limiter still bounds
// total sandbox instances process-wide.
func (s *GradeService) runCases(ctx context.Context, req sandbox.ExecutionRequest,
	v validator.Validator, names, inputs []string) ([]model.CaseOutcome, error) {
	outcomes := make([]model.CaseOutcome, len(inputs))

	if s.caseWorkers == 1 {
		for i := range inputs {
			outcome, err := s.runCase(ctx, req, v, names[i], inputs[i])
			if err != nil {
				return nil, err
			}
			outcomes[i] = outcome
		}
		return outcomes, nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	sem := make(chan struct{}, s.caseWorkers)
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := s.runCase(ctx, req, v, names[i], inputs[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return outcomes, nil
}

func (s *GradeService) runCase(ctx context.Context, req sandbox.ExecutionRequest,
	v validator.Validator, name, input string) (model.CaseOutcome, error) {
	if ctx.Err() != nil {
		return model.CaseOutcome{}, errs.Wrap(ctx.Err(), errs.GradeFailed)
	}
	caseReq := req
	caseReq.Stdin = input

	res, err := s.executor.Execute(ctx, caseReq)
	if err != nil {
		return model.CaseOutcome{}, err
	}
	if !res.OK {
		// A broken sandbox is not attributable to the submission;
		// retrying may succeed without any code change, so the whole
		// request aborts instead of reporting a misleading failure.
		if res.FailureKind == result.FailureInfrastructure {
			return model.CaseOutcome{}, errs.New(errs.RunFailed).WithMessage(res.Reason)
		}
		return model.CaseOutcome{
			Name:  name,
			OK:    false,
			Error: fmt.Sprintf("%s: %s", res.FailureKind, res.Reason),
		}, nil
	}
	actual := normOutput(res.Stdout)
	return model.CaseOutcome{
		Name:   name,
		OK:     v.Validate(input, actual),
		Actual: actual,
	}, nil
}

// gradeSeed fixes the hidden-case random source per (problem, code) pair.
func gradeSeed(problemID, userCode string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(problemID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(userCode))
	return int64(h.Sum64())
}

// normOutput trims trailing whitespace and normalizes line endings before
// output is compared or validated.
func normOutput(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
