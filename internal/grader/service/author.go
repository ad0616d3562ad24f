package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bugdojo/internal/grader/aigen"
	"bugdojo/internal/grader/model"
	"bugdojo/internal/grader/normalizer"
	"bugdojo/internal/grader/repository"
	"bugdojo/internal/grader/sandbox"
	"bugdojo/internal/grader/sandbox/result"
	errs "bugdojo/pkg/errors"
	"bugdojo/pkg/utils/logger"
)

// DefaultTopic is what the collaborator is asked to write a buggy problem
// about when the caller does not pick one.
const DefaultTopic = "bubble sort"

// AuthoredProblem is the outcome of one generate+confirm round. ValidBug
// holds only when the buggy code's real output disagrees with its claimed
// expected output.
type AuthoredProblem struct {
	ProblemID  string        `json:"problem_id,omitempty"`
	Title      string        `json:"title"`
	Language   string        `json:"language"`
	BuggyCode  string        `json:"buggy_code"`
	TestCase   ConfirmedCase `json:"test_case"`
	HintLevels []string      `json:"hint_levels"`
	ValidBug   bool          `json:"valid_bug"`
}

// ConfirmedCase is the single authored test case plus what the buggy code
// actually printed for it.
type ConfirmedCase struct {
	Name           string  `json:"name"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	ActualOutput   *string `json:"actual_output"`
	Diff           bool    `json:"diff"`
	Error          *string `json:"error"`
}

// AuthorService drives the authoring flow: ask the collaborator for a buggy
// problem, normalize its output, and confirm the bug is real by running the
// code against its own claimed case.
type AuthorService struct {
	generator aigen.Generator
	executor  Executor
	problems  repository.ProblemRepository
}

// NewAuthorService wires the authoring flow. problems may be nil to skip
// persisting confirmed problems.
func NewAuthorService(gen aigen.Generator, executor Executor, problems repository.ProblemRepository) *AuthorService {
	return &AuthorService{generator: gen, executor: executor, problems: problems}
}

// GenerateAndConfirm produces one authored problem. Generation and
// normalization failures surface with their own error codes; a bug that
// fails to reproduce is not an error, just ValidBug=false.
func (s *AuthorService) GenerateAndConfirm(ctx context.Context, language, topic string) (AuthoredProblem, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	raw, err := s.generator.GenerateProblem(ctx, language, topic)
	if err != nil {
		return AuthoredProblem{}, err
	}

	problem, err := normalizer.Normalize(raw, language)
	if err != nil {
		logger.Warn(ctx, "generation text failed normalization", zap.Error(err))
		return AuthoredProblem{}, err
	}

	confirmed, err := s.confirmCase(ctx, problem)
	if err != nil {
		return AuthoredProblem{}, err
	}

	authored := AuthoredProblem{
		Title:      problem.Title,
		Language:   problem.Language,
		BuggyCode:  problem.Code,
		TestCase:   confirmed,
		HintLevels: hintsOrEmpty(problem.HintLevels),
		ValidBug:   confirmed.Diff,
	}
	if authored.ValidBug && s.problems != nil {
		problem.ID = uuid.NewString()
		problem.ValidatorName = validatorForTopic(topic)
		if err := s.problems.Save(ctx, problem); err != nil {
			logger.Warn(ctx, "persist authored problem failed",
				zap.String("problem_id", problem.ID), zap.Error(err))
		} else {
			authored.ProblemID = problem.ID
		}
	}
	return authored, nil
}

// confirmCase runs the authored case through the sandbox and reports
// whether actual output differs from the claimed expected output.
func (s *AuthorService) confirmCase(ctx context.Context, problem model.Problem) (ConfirmedCase, error) {
	tc := problem.PublicCases[0]

	res, err := s.executor.Execute(ctx, sandbox.ExecutionRequest{
		RequestID: uuid.NewString(),
		Language:  problem.Language,
		Code:      problem.Code,
		Stdin:     confirmInput(problem, tc.Input),
	})
	if err != nil {
		return ConfirmedCase{}, err
	}
	if !res.OK && res.FailureKind == result.FailureInfrastructure {
		// An infra outage must not mint a "confirmed" bug.
		return ConfirmedCase{}, errs.New(errs.RunFailed).WithMessage(res.Reason)
	}

	expected := normOutput(tc.ExpectedOutput)
	confirmed := ConfirmedCase{
		Name:           tc.Name,
		Input:          tc.Input,
		ExpectedOutput: expected,
	}
	if res.OK {
		actual := normOutput(res.Stdout)
		confirmed.ActualOutput = &actual
		confirmed.Diff = expected != actual
	} else {
		reason := fmt.Sprintf("%s: %s", res.FailureKind, res.Reason)
		confirmed.Error = &reason
		confirmed.Diff = true
	}
	return confirmed, nil
}

var scanfCountPattern = regexp.MustCompile(`\bscanf\s*\(\s*"%d"\s*,\s*&\s*n\s*\)`)
var countPrefixPattern = regexp.MustCompile(`^\s*\d+\s+`)

// confirmInput prepends the token count when C code reads the array length
// first via scanf("%d", &n) but the authored input does not start with one.
func confirmInput(problem model.Problem, input string) string {
	trimmed := strings.TrimSpace(input)
	if problem.Language != "c" || !scanfCountPattern.MatchString(problem.Code) {
		return trimmed
	}
	if countPrefixPattern.MatchString(trimmed) {
		return trimmed
	}
	tokens := strings.Fields(trimmed)
	return fmt.Sprintf("%d %s", len(tokens), trimmed)
}

// validatorForTopic maps the authoring topic onto a validator family.
// Authoring currently only produces sorting exercises.
func validatorForTopic(topic string) string {
	switch {
	case strings.Contains(topic, "reverse"):
		return "reverse"
	case strings.Contains(topic, "sum"):
		return "sum"
	default:
		return "sort_asc"
	}
}

func hintsOrEmpty(hints []string) []string {
	if hints == nil {
		return []string{}
	}
	return hints
}
