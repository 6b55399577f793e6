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

package pdf

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
)

func column(t *testing.T, ds *data.Dataset, col string) []float64 {
	t.Helper()
	v, ok := ds.Column(col)
	if !ok {
		t.Fatalf("column %q missing in %s", col, ds)
	}
	return v
}

func inRange(t *testing.T, xs []float64, lo, hi float64) {
	t.Helper()
	for i, x := range xs {
		if x < lo || x > hi {
			t.Fatalf("value %v at %d outside [%v,%v]", x, i, lo, hi)
		}
	}
}

func TestGaussMomentsAndRange(t *testing.T) {
	c := core.NewWithSeed(10)
	g := NewGauss("m", model.NewConst("mu", 5), model.NewConst("sigma", 0.5), nil)
	obs := data.NewSet(data.NewReal("m", 0, 10), data.NewReal("t", -1, 1))
	ds, err := g.Generate(c, model.Request{Obs: obs, N: 20000})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ds.Len() != 20000 {
		t.Fatalf("rows = %d", ds.Len())
	}
	m := column(t, ds, "m")
	inRange(t, m, 0, 10)
	mean, std := stat.MeanStdDev(m, nil)
	if math.Abs(mean-5) > 0.02 || math.Abs(std-0.5) > 0.02 {
		t.Fatalf("gauss mean=%v std=%v", mean, std)
	}
	// 非自有觀測量均勻填值
	inRange(t, column(t, ds, "t"), -1, 1)
}

func TestGaussTruncated(t *testing.T) {
	c := core.NewWithSeed(3)
	g := NewGauss("m", model.NewConst("mu", 0), model.NewConst("sigma", 1), nil)
	obs := data.NewSet(data.NewReal("m", 0.5, 1))
	ds, err := g.Generate(c, model.Request{Obs: obs, N: 1000})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	inRange(t, column(t, ds, "m"), 0.5, 1)

	far := NewGauss("m", model.NewConst("mu", 100), model.NewConst("sigma", 0.01), nil)
	if _, err := far.Generate(c, model.Request{Obs: obs, N: 1}); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("unreachable range should fail with InvalidConfig, got %v", err)
	}
}

func TestExponentialMean(t *testing.T) {
	c := core.NewWithSeed(4)
	e := NewExponential("t", model.NewConst("tau", 1.5), nil)
	obs := data.NewSet(data.NewReal("t", 0, 1000))
	ds, err := e.Generate(c, model.Request{Obs: obs, N: 20000})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	xs := column(t, ds, "t")
	inRange(t, xs, 0, 1000)
	if mean := stat.Mean(xs, nil); math.Abs(mean-1.5) > 0.06 {
		t.Fatalf("exponential mean %v", mean)
	}

	bad := NewExponential("t", model.NewConst("tau", 0), nil)
	if _, err := bad.Generate(c, model.Request{Obs: obs, N: 1}); err == nil {
		t.Fatalf("tau=0 should fail")
	}
}

func TestHistogramBins(t *testing.T) {
	c := core.NewWithSeed(5)
	h, err := NewHistogram("x", []float64{0, 1, 2}, []float64{1, 3}, model.NewConst("n", 10))
	if err != nil {
		t.Fatalf("histogram: %v", err)
	}
	obs := data.NewSet(data.NewReal("x", 0, 2))
	ds, err := h.Generate(c, model.Request{Obs: obs, N: 40000})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	high := 0
	for _, x := range column(t, ds, "x") {
		if x >= 1 {
			high++
		}
	}
	frac := float64(high) / 40000
	if math.Abs(frac-0.75) > 5*math.Sqrt(0.75*0.25/40000) {
		t.Fatalf("upper bin fraction %v", frac)
	}
	if h.ExpectedEvents(obs) != 10 || len(h.Params()) != 1 {
		t.Fatalf("expected events / params broken")
	}
	if _, err := NewHistogram("x", []float64{0, 1}, []float64{1, 2}, nil); err == nil {
		t.Fatalf("edge/bin mismatch should fail")
	}
}

func TestCategoryPdf(t *testing.T) {
	c := core.NewWithSeed(6)
	cat := data.NewCategory("charge", "minus", "plus")
	p, err := NewCategoryPdf(cat, []float64{0, 1}, nil)
	if err != nil {
		t.Fatalf("category pdf: %v", err)
	}
	ds, err := p.Generate(c, model.Request{Obs: data.NewSet(data.NewCatVar(cat)), N: 100})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, v := range column(t, ds, "charge") {
		if v != 1 {
			t.Fatalf("zero-weight state drawn")
		}
	}
}

func TestExtendedRequestPoissonizes(t *testing.T) {
	c := core.NewWithSeed(7)
	u := NewUniform("x", nil)
	obs := data.NewSet(data.NewReal("x", 0, 1))
	sizes := map[int]bool{}
	for i := 0; i < 30; i++ {
		ds, err := u.Generate(c, model.Request{Obs: obs, N: 50, Extended: true})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		sizes[ds.Len()] = true
	}
	if len(sizes) < 3 {
		t.Fatalf("extended request should vary the size, saw %v", sizes)
	}
}

func TestResolutionUsesProto(t *testing.T) {
	c := core.NewWithSeed(8)
	r := NewResolution("dm", "err", model.NewConst("mu", 0), model.NewConst("scale", 1), nil)
	obs := data.NewSet(data.NewReal("dm", -100, 100))

	if _, err := r.Generate(c, model.Request{Obs: obs, N: 10}); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("missing proto should fail, got %v", err)
	}

	proto := data.New("err")
	for i := 0; i < 10000; i++ {
		e := 0.1
		if i%2 == 1 {
			e = 10
		}
		_ = proto.Add(e)
	}
	ds, err := r.Generate(c, model.Request{Obs: obs, N: 10000, Proto: proto})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	xs := column(t, ds, "dm")
	var narrow, wide []float64
	for i, x := range xs {
		if i%2 == 0 {
			narrow = append(narrow, x)
		} else {
			wide = append(wide, x)
		}
	}
	if s := stat.StdDev(narrow, nil); s > 0.2 {
		t.Fatalf("rows with err=0.1 too wide: %v", s)
	}
	if s := stat.StdDev(wide, nil); s < 5 {
		t.Fatalf("rows with err=10 too narrow: %v", s)
	}
}
