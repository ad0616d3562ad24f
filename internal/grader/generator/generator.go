// Package generator synthesizes hidden test inputs from a problem's public
// cases. The random source is injected so callers control determinism.
package generator

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultPerBase is how many hidden cases each public case seeds.
	DefaultPerBase = 2
	// DefaultExtraEdgeCount is how many fixed edge cases are appended.
	DefaultExtraEdgeCount = 4

	lengthJitter = 2
)

// Generate derives hidden inputs from the base inputs. The result always
// holds exactly len(baseInputs)*perBase + extraEdgeCount items; baseInputs
// is never mutated.
func Generate(rng *rand.Rand, validatorName string, baseInputs []string, perBase, extraEdgeCount int) []string {
	lo, hi := valueRange(validatorName)
	out := make([]string, 0, len(baseInputs)*perBase+extraEdgeCount)

	for _, base := range baseInputs {
		baseLen := len(strings.Fields(base))
		for i := 0; i < perBase; i++ {
			length := baseLen + rng.Intn(2*lengthJitter+1) - lengthJitter
			if length < 1 {
				length = 1
			}
			nums := randomInts(rng, length, lo, hi)
			if validatorName != "sum" {
				shapeCase(rng, nums)
			}
			out = append(out, joinInts(nums))
		}
	}

	return append(out, edgeCases(rng, validatorName, extraEdgeCount, lo, hi)...)
}

// valueRange picks the integer range for synthesized values. Sum problems
// get a wider spread so totals exercise more than single digits.
func valueRange(validatorName string) (int, int) {
	if validatorName == "sum" {
		return -100, 100
	}
	return -50, 50
}

// shapeCase occasionally reshapes a case into a near-sorted or fully
// descending order, which is where buggy sort and reverse implementations
// tend to slip through.
func shapeCase(rng *rand.Rand, nums []int) {
	if len(nums) < 4 {
		return
	}
	if rng.Float64() < 0.3 {
		prefix := 2 + rng.Intn(len(nums)-1)
		if prefix > len(nums) {
			prefix = len(nums)
		}
		sort.Ints(nums[:prefix])
	}
	if rng.Float64() < 0.2 {
		sort.Sort(sort.Reverse(sort.IntSlice(nums)))
	}
}

func edgeCases(rng *rand.Rand, validatorName string, count, lo, hi int) []string {
	var fixed []string
	if validatorName == "sum" {
		fixed = []string{"0", "100 -100"}
	} else {
		fixed = []string{"1", "2 2 2 2", "5 4 3 2 1", "-5 -10 0 3"}
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if i < len(fixed) {
			out = append(out, fixed[i])
			continue
		}
		length := 2 + rng.Intn(11)
		out = append(out, joinInts(randomInts(rng, length, lo, hi)))
	}
	return out
}

func randomInts(rng *rand.Rand, n, lo, hi int) []int {
	nums := make([]int, n)
	for i := range nums {
		nums[i] = lo + rng.Intn(hi-lo+1)
	}
	return nums
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
