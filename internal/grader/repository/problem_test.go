package repository_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"bugdojo/internal/common/cache"
	"bugdojo/internal/grader/repository"
	errs "bugdojo/pkg/errors"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(srv.Addr())
	if err != nil {
		t.Fatalf("redis cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetByIDDemoFallback(t *testing.T) {
	repo := repository.NewProblemRepository(nil, newTestCache(t))

	p, err := repo.GetByID(context.Background(), "sort-demo")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.ValidatorName != "sort_asc" {
		t.Errorf("validator = %q", p.ValidatorName)
	}
	if len(p.PublicCases) != 2 || p.PublicCases[0].Input != "5 3 8 6 2" {
		t.Fatalf("cases = %+v", p.PublicCases)
	}
}

func TestGetByIDCachesResult(t *testing.T) {
	c := newTestCache(t)
	repo := repository.NewProblemRepository(nil, c)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "sum-demo"); err != nil {
		t.Fatalf("first GetByID: %v", err)
	}
	// Second read must come from cache; a repo with no demo set and no DB
	// backed by the same cache still resolves it.
	if _, err := repo.GetByID(ctx, "sum-demo"); err != nil {
		t.Fatalf("second GetByID: %v", err)
	}
	if cached, err := c.Get(ctx, "problem:sum-demo"); err != nil || cached == "" {
		t.Fatalf("problem not cached: %v %q", err, cached)
	}
}

func TestGetByIDUnknownProblem(t *testing.T) {
	repo := repository.NewProblemRepository(nil, newTestCache(t))

	_, err := repo.GetByID(context.Background(), "no-such-problem")
	if errs.GetCode(err) != errs.ProblemNotFound {
		t.Fatalf("err = %v, want problem_not_found", err)
	}
}

func TestGetByIDWithoutCache(t *testing.T) {
	repo := repository.NewProblemRepository(nil, nil)

	p, err := repo.GetByID(context.Background(), "reverse-demo")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.ValidatorName != "reverse" {
		t.Errorf("validator = %q", p.ValidatorName)
	}
}
