package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bugdojo/internal/common/cache"
	"bugdojo/internal/common/db"
	"bugdojo/internal/grader/model"
	errs "bugdojo/pkg/errors"
)

const (
	defaultProblemCacheTTL      = 10 * time.Minute
	defaultProblemCacheEmptyTTL = 30 * time.Second
)

// ProblemRepository stores and retrieves problems by ID.
type ProblemRepository interface {
	GetByID(ctx context.Context, id string) (model.Problem, error)
	Save(ctx context.Context, problem model.Problem) error
}

// MySQLProblemRepository keeps problems in MySQL behind a cache-aside Redis
// layer. When constructed without a database it serves only the built-in
// demo problems, which keeps local development and tests free of a MySQL
// dependency.
type MySQLProblemRepository struct {
	database *db.MySQL
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewProblemRepository creates a problem repository. database may be nil.
func NewProblemRepository(database *db.MySQL, cacheClient cache.Cache) *MySQLProblemRepository {
	return &MySQLProblemRepository{
		database: database,
		cache:    cacheClient,
		ttl:      defaultProblemCacheTTL,
		emptyTTL: defaultProblemCacheEmptyTTL,
	}
}

func problemCacheKey(id string) string {
	return "problem:" + id
}

// GetByID resolves a problem from cache, database, or the demo set, in that
// order. A miss everywhere is ProblemNotFound.
func (r *MySQLProblemRepository) GetByID(ctx context.Context, id string) (model.Problem, error) {
	if id == "" {
		return model.Problem{}, errs.New(errs.ProblemNotFound)
	}

	load := func(ctx context.Context) (model.Problem, error) {
		p, err := r.loadFromDB(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return model.Problem{}, err
		}
		if demo, ok := demoProblems[id]; ok {
			return demo, nil
		}
		return model.Problem{}, nil
	}

	var problem model.Problem
	var err error
	if r.cache != nil {
		problem, err = cache.GetWithCached(
			ctx, r.cache, problemCacheKey(id), r.ttl, r.emptyTTL,
			func(p model.Problem) bool { return p.ID == "" },
			func(p model.Problem) string {
				data, _ := json.Marshal(p)
				return string(data)
			},
			func(s string) (model.Problem, error) {
				var p model.Problem
				err := json.Unmarshal([]byte(s), &p)
				return p, err
			},
			load,
		)
	} else {
		problem, err = load(ctx)
	}
	if err != nil {
		return model.Problem{}, err
	}
	if problem.ID == "" {
		return model.Problem{}, errs.New(errs.ProblemNotFound).WithDetail("problem_id", id)
	}
	return problem, nil
}

func (r *MySQLProblemRepository) loadFromDB(ctx context.Context, id string) (model.Problem, error) {
	if r.database == nil {
		return model.Problem{}, sql.ErrNoRows
	}
	const query = "SELECT id, title, language, code, validator, public_cases, hint_levels FROM problems WHERE id = ?"
	row := r.database.DB().QueryRowContext(ctx, query, id)

	var p model.Problem
	var casesJSON, hintsJSON sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Language, &p.Code, &p.ValidatorName, &casesJSON, &hintsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Problem{}, err
		}
		return model.Problem{}, errs.Wrap(err, errs.ProblemStoreFailed)
	}
	if casesJSON.Valid {
		if err := json.Unmarshal([]byte(casesJSON.String), &p.PublicCases); err != nil {
			return model.Problem{}, errs.Wrap(err, errs.ProblemStoreFailed).WithDetail("problem_id", id)
		}
	}
	if hintsJSON.Valid {
		if err := json.Unmarshal([]byte(hintsJSON.String), &p.HintLevels); err != nil {
			return model.Problem{}, errs.Wrap(err, errs.ProblemStoreFailed).WithDetail("problem_id", id)
		}
	}
	return p, nil
}

// Save upserts a problem and invalidates its cache entry.
func (r *MySQLProblemRepository) Save(ctx context.Context, problem model.Problem) error {
	if problem.ID == "" {
		return errs.New(errs.ProblemStoreFailed).WithMessage("problem id is required")
	}
	if r.database == nil {
		return errs.New(errs.ProblemStoreFailed).WithMessage("no database configured")
	}
	casesJSON, err := json.Marshal(problem.PublicCases)
	if err != nil {
		return errs.Wrap(err, errs.ProblemStoreFailed)
	}
	hintsJSON, err := json.Marshal(problem.HintLevels)
	if err != nil {
		return errs.Wrap(err, errs.ProblemStoreFailed)
	}

	write := func(ctx context.Context) error {
		const query = `INSERT INTO problems (id, title, language, code, validator, public_cases, hint_levels)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE title = VALUES(title), language = VALUES(language), code = VALUES(code),
validator = VALUES(validator), public_cases = VALUES(public_cases), hint_levels = VALUES(hint_levels)`
		_, err := r.database.DB().ExecContext(ctx, query,
			problem.ID, problem.Title, problem.Language, problem.Code,
			problem.ValidatorName, string(casesJSON), string(hintsJSON))
		if err != nil {
			return errs.Wrap(err, errs.ProblemStoreFailed)
		}
		return nil
	}

	if r.cache != nil {
		return cache.UpdateCached(ctx, r.cache, problemCacheKey(problem.ID), write)
	}
	return write(ctx)
}

// demoProblems ship with the service so a fresh deployment can grade
// something before any problem has been authored.
var demoProblems = map[string]model.Problem{
	"sort-demo": {
		ID:            "sort-demo",
		Title:         "sort the numbers",
		Language:      "python",
		ValidatorName: "sort_asc",
		PublicCases: []model.TestCase{
			{Name: "example_1", Input: "5 3 8 6 2", ExpectedOutput: "2 3 5 6 8"},
			{Name: "example_2", Input: "1 4 3", ExpectedOutput: "1 3 4"},
		},
	},
	"reverse-demo": {
		ID:            "reverse-demo",
		Title:         "reverse the sequence",
		Language:      "python",
		ValidatorName: "reverse",
		PublicCases: []model.TestCase{
			{Name: "example_1", Input: "1 2 3", ExpectedOutput: "3 2 1"},
		},
	},
	"sum-demo": {
		ID:            "sum-demo",
		Title:         "sum the numbers",
		Language:      "python",
		ValidatorName: "sum",
		PublicCases: []model.TestCase{
			{Name: "example_1", Input: "1 2 3", ExpectedOutput: "6"},
		},
	},
}

var _ ProblemRepository = (*MySQLProblemRepository)(nil)

func init() {
	// Guard against a demo entry whose key and ID drift apart.
	for id, p := range demoProblems {
		if p.ID != id {
			panic(fmt.Sprintf("demo problem %q has mismatched id %q", id, p.ID))
		}
	}
}
