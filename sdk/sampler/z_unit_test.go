// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"errors"
	"math"
	"testing"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// within 驗證比例落在期望值的 k 個標準差內（二項分佈）。
func within(t *testing.T, name string, count, n int, p float64, k float64) {
	t.Helper()
	got := float64(count) / float64(n)
	sd := math.Sqrt(p * (1 - p) / float64(n))
	if math.Abs(got-p) > k*sd {
		t.Errorf("[%s] fraction %.4f deviates from %.4f by more than %.0f sigma (sd=%.5f)", name, got, p, k, sd)
	}
}

func obsSet(names ...string) *data.Set {
	vars := make([]*data.Var, len(names))
	for i, n := range names {
		vars[i] = data.NewReal(n, -10, 10)
	}
	return data.NewSet(vars...)
}

// -----------------------------------------------------------------------------
// Discrete sampler
// -----------------------------------------------------------------------------

func TestDiscreteConvergence(t *testing.T) {
	c := core.NewWithSeed(2025)
	dist := Distribution{Var: "tag", Values: []float64{-1, 1}, Cum: []float64{0.3, 1.0}}
	const n = 100000
	ds, counts, err := GenerateDiscrete(c, nil, []Distribution{dist}, obsSet("tag", "m"), nil, n)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ds.Len() != n {
		t.Fatalf("full table must not drop rows, got %d", ds.Len())
	}
	within(t, "v1", counts[0].Counts[0], n, 0.3, 5)
	within(t, "v2", counts[0].Counts[1], n, 0.7, 5)

	col, _ := ds.Column("tag")
	neg := 0
	for _, v := range col {
		if v == -1 {
			neg++
		}
	}
	if neg != counts[0].Counts[0] {
		t.Fatalf("counts disagree with dataset: %d vs %d", neg, counts[0].Counts[0])
	}
}

func TestDiscreteDropsUnassignedRows(t *testing.T) {
	c := core.NewWithSeed(7)
	dists := []Distribution{
		{Var: "a", Values: []float64{0, 1}, Cum: []float64{0.5, 1.0}},
		{Var: "b", Values: []float64{5}, Cum: []float64{0.6}},
	}
	const n = 20000
	ds, counts, err := GenerateDiscrete(c, nil, dists, obsSet("a", "b"), nil, n)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ds.Len() >= n {
		t.Fatalf("rows should be dropped when cumulative table stops at 0.6")
	}
	within(t, "kept", ds.Len(), n, 0.6, 5)
	if counts[1].Counts[0] != ds.Len() {
		t.Fatalf("b count %d should equal kept rows %d", counts[1].Counts[0], ds.Len())
	}
	if counts[0].Counts[0]+counts[0].Counts[1] != ds.Len() {
		t.Fatalf("dropped rows must not be counted for other variables")
	}
	for i := 0; i < ds.Len(); i++ {
		if v, _ := ds.Value(i, "b"); v != 5 {
			t.Fatalf("row %d partially filled: b=%v", i, v)
		}
	}
}

func TestDiscreteMissingObservableIsFatal(t *testing.T) {
	c := core.NewWithSeed(1)
	dist := Distribution{Var: "nope", Values: []float64{1}, Cum: []float64{1}}
	_, _, err := GenerateDiscrete(c, nil, []Distribution{dist}, obsSet("x"), nil, 10)
	if !errors.Is(err, errs.ErrNotGeneratingDiscreteData) {
		t.Fatalf("expected NotGeneratingDiscreteData, got %v", err)
	}
}

func TestDiscreteAlreadyGeneratedOnlyWarns(t *testing.T) {
	c := core.NewWithSeed(1)
	dist := Distribution{Var: "x", Values: []float64{1}, Cum: []float64{1}}
	ds, _, err := GenerateDiscrete(c, nil, []Distribution{dist}, obsSet("x"), []string{"x"}, 10)
	if err != nil || ds.Len() != 10 {
		t.Fatalf("already generated variable should only warn: %v", err)
	}
}

func TestDistributionValidate(t *testing.T) {
	bad := []Distribution{
		{Var: "", Values: []float64{1}, Cum: []float64{1}},
		{Var: "x", Values: []float64{1, 2}, Cum: []float64{1}},
		{Var: "x", Values: []float64{1, 2}, Cum: []float64{0.6, 0.4}},
		{Var: "x", Values: []float64{1}, Cum: []float64{1.2}},
	}
	for i, d := range bad {
		if err := d.Validate(); !errors.Is(err, errs.ErrInvalidConfig) {
			t.Fatalf("case %d: expected InvalidConfig, got %v", i, err)
		}
	}
}

// -----------------------------------------------------------------------------
// AliasTable
// -----------------------------------------------------------------------------

func TestAliasTableDistribution(t *testing.T) {
	c := core.NewWithSeed(99)
	weights := []float64{1, 0, 3, 6}
	at, err := BuildAliasTable(weights)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	const n = 200000
	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		counts[at.Pick(c)]++
	}
	if counts[1] != 0 {
		t.Fatalf("zero weight picked %d times", counts[1])
	}
	within(t, "w0", counts[0], n, 0.1, 5)
	within(t, "w2", counts[2], n, 0.3, 5)
	within(t, "w3", counts[3], n, 0.6, 5)
}

func TestAliasTableErrors(t *testing.T) {
	if _, err := BuildAliasTable([]float64{0, 0}); err == nil {
		t.Fatalf("all-zero weights should fail")
	}
	if _, err := BuildAliasTable([]float64{1, -1}); err == nil {
		t.Fatalf("negative weight should fail")
	}
	at, err := BuildAliasTable(nil)
	if err != nil || at.Pick(core.NewWithSeed(1)) != -1 {
		t.Fatalf("empty table should pick -1")
	}
}
