package generator_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"bugdojo/internal/grader/generator"
)

func TestGenerateCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bases := []string{"5 3 8 6 2", "1 4 3"}
	cases := generator.Generate(rng, "sort_asc", bases, 2, 4)
	if want := len(bases)*2 + 4; len(cases) != want {
		t.Fatalf("generated %d cases, want %d", len(cases), want)
	}
}

func TestGenerateDeterministicWithFixedSeed(t *testing.T) {
	bases := []string{"1 2 3 4 5"}
	first := generator.Generate(rand.New(rand.NewSource(42)), "reverse", bases, 3, 2)
	second := generator.Generate(rand.New(rand.NewSource(42)), "reverse", bases, 3, 2)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("case %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestGenerateDoesNotMutateBases(t *testing.T) {
	bases := []string{"9 8 7"}
	generator.Generate(rand.New(rand.NewSource(7)), "sum", bases, 2, 4)
	if bases[0] != "9 8 7" {
		t.Fatalf("base input mutated: %q", bases[0])
	}
}

func TestGenerateCasesAreParsableInts(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	cases := generator.Generate(rng, "sort_asc", []string{"1 2 3 4"}, 5, 6)
	for _, c := range cases {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("empty case generated")
		}
		for _, field := range strings.Fields(c) {
			if _, err := strconv.Atoi(field); err != nil {
				t.Fatalf("case %q holds non-integer token %q", c, field)
			}
		}
	}
}

func TestGenerateSumEdgeCases(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cases := generator.Generate(rng, "sum", nil, 2, 4)
	if len(cases) != 4 {
		t.Fatalf("generated %d cases, want 4", len(cases))
	}
	if cases[0] != "0" {
		t.Errorf("first sum edge case = %q, want %q", cases[0], "0")
	}
	if cases[1] != "100 -100" {
		t.Errorf("second sum edge case = %q, want %q", cases[1], "100 -100")
	}
}

func TestGenerateMinLengthOne(t *testing.T) {
	// A length-1 base with negative jitter must never yield an empty case.
	for seed := int64(0); seed < 20; seed++ {
		cases := generator.Generate(rand.New(rand.NewSource(seed)), "sort_asc", []string{"7"}, 4, 0)
		for _, c := range cases {
			if len(strings.Fields(c)) < 1 {
				t.Fatalf("seed %d produced empty case", seed)
			}
		}
	}
}
