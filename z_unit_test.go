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

package toylab

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/toylab/demo/demo_configs"
	"github.com/zintix-labs/toylab/demo/demo_models"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/spec"
	"github.com/zintix-labs/toylab/store"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

func newDemoLab(t *testing.T) *Toylab {
	t.Helper()
	lab, err := NewAuto(core.Default(), nil, Configs(demo_configs.FS), Models(demo_models.Models))
	if err != nil {
		t.Fatalf("new toylab: %v", err)
	}
	return lab
}

// settingNoOutput 取出設定並關掉檔案輸出，避免測試寫到工作目錄。
func settingNoOutput(t *testing.T, lab *Toylab, name string) *spec.ToySetting {
	t.Helper()
	ts, err := lab.Setting(name)
	if err != nil {
		t.Fatalf("setting %s: %v", name, err)
	}
	ts.Output.File = ""
	return ts
}

func generate(t *testing.T, g *Generator) *Result {
	t.Helper()
	res, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate %s: %v", g.Name(), err)
	}
	return res
}

func sameRows(t *testing.T, a, b *Result) {
	t.Helper()
	if a.Data.Len() != b.Data.Len() {
		t.Fatalf("row count differs: %d vs %d", a.Data.Len(), b.Data.Len())
	}
	if !slices.Equal(a.Data.Columns(), b.Data.Columns()) {
		t.Fatalf("columns differ: %v vs %v", a.Data.Columns(), b.Data.Columns())
	}
	for i := 0; i < a.Data.Len(); i++ {
		if !slices.Equal(a.Data.Row(i), b.Data.Row(i)) {
			t.Fatalf("row %d differs: %v vs %v", i, a.Data.Row(i), b.Data.Row(i))
		}
	}
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func TestRegisterAllDemo(t *testing.T) {
	lab := newDemoLab(t)
	want := []string{"by_channel", "flavour_only", "mass_time", "sig_bkg", "sig_bkg_ext", "smeared_mass"}
	got := slices.Sorted(slices.Values(lab.Names()))
	if !slices.Equal(got, want) {
		t.Fatalf("names %v want %v", got, want)
	}
	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	found := false
	for _, s := range sum {
		if s.Name == "sig_bkg" {
			found = true
			if s.Model != "sig_bkg" || s.Yield != 1000 || !slices.Equal(s.Discrete, []string{"tag"}) {
				t.Fatalf("sig_bkg summary %+v", s)
			}
		}
	}
	if !found {
		t.Fatalf("sig_bkg missing from summary")
	}
}

func TestSummaryNeedsFreeze(t *testing.T) {
	lab, err := New(core.Default(), nil, Configs(demo_configs.FS), Models(demo_models.Models))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := lab.RegisterAll(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := lab.Summary(); err == nil {
		t.Fatalf("summary before freeze must fail")
	}
	if _, err := lab.NewGenerator("sig_bkg"); err == nil {
		t.Fatalf("generator before freeze must fail")
	}
}

func TestRegisterAllRejects(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"duplicate name": {
			"a.yaml": {Data: []byte("name: same\nmodel: mass_time\n")},
			"b.yaml": {Data: []byte("name: same\nmodel: sig_bkg\n")},
		},
		"unknown model": {
			"a.yaml": {Data: []byte("name: a\nmodel: nope\n")},
		},
		"unknown section model": {
			"a.yaml": {Data: []byte("name: a\nmodel: smeared_mass\nproto_sections:\n  smeared_mass: [e]\nsections:\n  e:\n    model: nope\n")},
		},
	}
	for name, fsys := range cases {
		lab, err := New(core.Default(), nil, Configs(fsys), Models(demo_models.Models))
		if err != nil {
			t.Fatalf("%s: new: %v", name, err)
		}
		if err := lab.RegisterAll(); err == nil {
			t.Errorf("%s: expected error", name)
		}
		if len(lab.Names()) != 0 {
			t.Errorf("%s: failed registration must not leave entries", name)
		}
	}
}

func TestNewRequiresInputs(t *testing.T) {
	if _, err := New(nil, nil, Configs(demo_configs.FS), Models(demo_models.Models)); err == nil {
		t.Fatalf("nil factory must fail")
	}
	if _, err := New(core.Default(), nil, nil, Models(demo_models.Models)); err == nil {
		t.Fatalf("missing configs must fail")
	}
	if _, err := New(core.Default(), nil, Configs(demo_configs.FS), nil); err == nil {
		t.Fatalf("missing models must fail")
	}
}

// -----------------------------------------------------------------------------
// Generator
// -----------------------------------------------------------------------------

func TestGenerateSameSeedSameData(t *testing.T) {
	lab := newDemoLab(t)
	for _, name := range []string{"sig_bkg", "by_channel", "smeared_mass"} {
		ga, err := lab.NewGeneratorWithSeed(name, 77)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		gb, _ := lab.NewGeneratorWithSeed(name, 77)
		sameRows(t, generate(t, ga), generate(t, gb))
	}
}

func TestGenerateUsesSettingSeed(t *testing.T) {
	lab := newDemoLab(t)
	g, err := lab.NewGenerator("sig_bkg")
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	if g.Seed() != 20250101 {
		t.Fatalf("setting seed ignored: %d", g.Seed())
	}
}

func TestSnapshotRestoreReplays(t *testing.T) {
	lab := newDemoLab(t)
	g, err := lab.NewGeneratorWithSeed("mass_time", 3)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	// 換成不寫檔的設定
	g.setting = settingNoOutput(t, lab, "mass_time")
	generate(t, g)
	snap, err := g.SnapshotCore()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	a := generate(t, g)
	if err := g.RestoreCore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	b := generate(t, g)
	sameRows(t, a, b)
	if a.RunID == b.RunID {
		t.Fatalf("replayed run still needs a fresh run id")
	}
}

func TestModelNotSet(t *testing.T) {
	lab := newDemoLab(t)
	g, err := lab.NewGeneratorByYAML([]byte("name: empty\nyield: 10\n"), 1)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	_, err = g.Generate(context.Background())
	if !errors.Is(err, errs.ErrModelNotSet) {
		t.Fatalf("expected ModelNotSet, got %v", err)
	}
}

func TestGenerateCanceled(t *testing.T) {
	lab := newDemoLab(t)
	g, _ := lab.NewGeneratorWithSeed("sig_bkg", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDiscreteTagMerged(t *testing.T) {
	lab := newDemoLab(t)
	g, _ := lab.NewGeneratorWithSeed("sig_bkg", 11)
	res := generate(t, g)
	if res.Data.Len() != 1000 || res.Expected != 1000 {
		t.Fatalf("rows %d expected %v", res.Data.Len(), res.Expected)
	}
	if !res.Data.Has("mass") || !res.Data.Has("tag") {
		t.Fatalf("columns %v", res.Data.Columns())
	}
	tags, _ := res.Data.Column("tag")
	b := 0
	for _, v := range tags {
		switch v {
		case 0:
			b++
		case 1:
		default:
			t.Fatalf("tag value %v is not a category index", v)
		}
	}
	if len(res.Counts) != 1 || res.Counts[0].Counts[0] != b {
		t.Fatalf("counts %+v disagree with %d b-tags", res.Counts, b)
	}
	// 0.3 ± 5σ
	if frac := float64(b) / 1000; math.Abs(frac-0.3) > 5*math.Sqrt(0.3*0.7/1000) {
		t.Fatalf("b fraction %.3f", frac)
	}
	if fsig := res.Params["fsig"]; fsig != 0.25 {
		t.Fatalf("param_values not applied: fsig=%v", fsig)
	}
}

func TestDiscreteOverlaysSimultaneousIndex(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "by_channel")
	ts.Discrete = []spec.DiscreteSetting{{Var: "channel", Entries: []spec.DiscreteEntry{{Label: "ee", Cum: 1}}}}
	g, err := lab.NewGeneratorBySetting(ts, 5)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	res := generate(t, g)
	ch, ok := res.Data.Column("channel")
	if !ok {
		t.Fatalf("channel column missing: %v", res.Data.Columns())
	}
	for i, v := range ch {
		if v != 0 {
			t.Fatalf("row %d: channel %v not overlaid", i, v)
		}
	}
}

func TestDiscreteOnly(t *testing.T) {
	lab := newDemoLab(t)
	g, _ := lab.NewGeneratorWithSeed("flavour_only", 21)
	res := generate(t, g)
	if !slices.Equal(res.Data.Columns(), []string{"flavour"}) {
		t.Fatalf("columns %v", res.Data.Columns())
	}
	if res.Expected != 200 {
		t.Fatalf("expected %v", res.Expected)
	}
	if n := res.Data.Len(); n < 130 || n > 270 {
		t.Fatalf("poisson(200) rows out of 5 sigma: %d", n)
	}
	total := 0
	for _, c := range res.Counts[0].Counts {
		total += c
	}
	if total != res.Data.Len() {
		t.Fatalf("counts %d vs rows %d", total, res.Data.Len())
	}
}

func TestDiscreteOnlyNeedsYield(t *testing.T) {
	lab := newDemoLab(t)
	raw := []byte("name: d\ndiscrete:\n  - var: x\n    entries:\n      - { value: 1, cum: 1 }\n")
	g, err := lab.NewGeneratorByYAML(raw, 1)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	if _, err := g.Generate(context.Background()); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestDiscreteUnknownObservable(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "mass_time")
	ts.Discrete = []spec.DiscreteSetting{{Var: "nope", Entries: []spec.DiscreteEntry{{Value: 1, Cum: 1}}}}
	g, _ := lab.NewGeneratorBySetting(ts, 1)
	if _, err := g.Generate(context.Background()); !errors.Is(err, errs.ErrNotGeneratingDiscreteData) {
		t.Fatalf("expected NotGeneratingDiscreteData, got %v", err)
	}
}

func TestProtoSection(t *testing.T) {
	lab := newDemoLab(t)
	g, _ := lab.NewGeneratorWithSeed("smeared_mass", 8)
	res := generate(t, g)
	if res.Data.Len() != 400 {
		t.Fatalf("rows %d", res.Data.Len())
	}
	errsCol, ok := res.Data.Column("mass_err")
	if !ok || !res.Data.Has("mass") {
		t.Fatalf("columns %v", res.Data.Columns())
	}
	for i, e := range errsCol {
		if e < 0.5 || e > 3.0 {
			t.Fatalf("row %d: mass_err %v outside histogram range", i, e)
		}
	}
}

func TestConstraintsDrawn(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "sig_bkg_ext")
	seen := map[float64]bool{}
	for seed := int64(1); seed <= 5; seed++ {
		g, err := lab.NewGeneratorBySetting(ts, seed)
		if err != nil {
			t.Fatalf("generator: %v", err)
		}
		res := generate(t, g)
		nsig := res.Params["nsig"]
		if nsig < 0 || math.Abs(nsig-50) > 50 {
			t.Fatalf("nsig %v outside a sane draw of N(50,5)", nsig)
		}
		if res.Params["nbkg"] != 450 {
			t.Fatalf("unconstrained nbkg changed: %v", res.Params["nbkg"])
		}
		seen[nsig] = true
	}
	if len(seen) < 2 {
		t.Fatalf("constraint must be redrawn per seed")
	}
}

func TestConstraintUnknownParam(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "mass_time")
	ts.Constraints = []spec.ConstraintSetting{{Param: "nope", Mean: 1, Sigma: 1}}
	g, _ := lab.NewGeneratorBySetting(ts, 1)
	if _, err := g.Generate(context.Background()); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestParamsSaveThenRead(t *testing.T) {
	lab := newDemoLab(t)
	dir := t.TempDir()
	saved := filepath.Join(dir, "params.yaml")

	ts := settingNoOutput(t, lab, "mass_time")
	ts.Params.Save = saved
	g, _ := lab.NewGeneratorBySetting(ts, 1)
	generate(t, g)
	got, err := store.ReadParams(saved)
	if err != nil {
		t.Fatalf("read params: %v", err)
	}
	if got["lifetime"] != 1.5 || got["mu"] != 125 {
		t.Fatalf("saved params %v", got)
	}

	override := filepath.Join(dir, "override.yaml")
	if err := store.SaveParams(override, map[string]float64{"lifetime": 2.5}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts = settingNoOutput(t, lab, "mass_time")
	ts.ParamValues = map[string]float64{"lifetime": 4, "sigma": 2}
	ts.Params.Read = override
	g, _ = lab.NewGeneratorBySetting(ts, 1)
	res := generate(t, g)
	if res.Params["lifetime"] != 2.5 {
		t.Fatalf("params file must override param_values: %v", res.Params["lifetime"])
	}
	if res.Params["sigma"] != 2 {
		t.Fatalf("param_values not applied: %v", res.Params["sigma"])
	}
}

func TestGenerateWritesCSV(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "sig_bkg")
	ts.Output.File = filepath.Join(t.TempDir(), "toy_{key}.csv.zst")
	ts.Output.Format = spec.FormatCSVZst
	g, _ := lab.NewGeneratorBySetting(ts, 4)
	res := generate(t, g)
	if !res.Stored {
		t.Fatalf("result not stored")
	}
	back, err := store.ReadFile(store.NewFileSink(ts.Output.File, true).PathFor(res.Key))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if back.Len() != res.Data.Len() {
		t.Fatalf("rows %d vs %d", back.Len(), res.Data.Len())
	}
	v, _ := back.Value(0, "mass")
	w, _ := res.Data.Value(0, "mass")
	if v != w {
		t.Fatalf("first mass %v vs %v", v, w)
	}
}

// -----------------------------------------------------------------------------
// Toys
// -----------------------------------------------------------------------------

func TestToysSameAcrossWorkers(t *testing.T) {
	lab := newDemoLab(t)
	run := func(workers int) []float64 {
		toys, err := lab.NewToys("flavour_only", 99)
		if err != nil {
			t.Fatalf("toys: %v", err)
		}
		rep, _, err := toys.Run(context.Background(), 16, workers, false)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if rep.Toys != 16 || rep.Pulls.Total() != 16 {
			t.Fatalf("report %+v", rep)
		}
		return []float64{rep.Mean, rep.Std, rep.Median, rep.Coverage}
	}
	one := run(1)
	four := run(4)
	if !slices.Equal(one, four) {
		t.Fatalf("toy results depend on worker count: %v vs %v", one, four)
	}
}

func TestToysNeedKeyPlaceholder(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "mass_time")
	ts.Output = spec.OutputSetting{File: filepath.Join(t.TempDir(), "one.csv"), Key: "mass_time", Format: spec.FormatCSV}
	toys, err := lab.NewToysBySetting(ts, 1)
	if err != nil {
		t.Fatalf("toys: %v", err)
	}
	if _, _, err := toys.Run(context.Background(), 2, 1, false); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestToysSaveParamsPerToy(t *testing.T) {
	lab := newDemoLab(t)
	dir := t.TempDir()
	ts := settingNoOutput(t, lab, "mass_time")
	ts.Output.Key = "mt"
	ts.Params.Save = filepath.Join(dir, "shared.yaml")
	toys, err := lab.NewToysBySetting(ts, 3)
	if err != nil {
		t.Fatalf("toys: %v", err)
	}
	if _, _, err := toys.Run(context.Background(), 3, 3, false); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("shared params path should be rejected, got %v", err)
	}

	ts.Params.Save = filepath.Join(dir, "params_{key}.yaml")
	toys, err = lab.NewToysBySetting(ts, 3)
	if err != nil {
		t.Fatalf("toys: %v", err)
	}
	if _, _, err := toys.Run(context.Background(), 3, 3, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i := range 3 {
		path := filepath.Join(dir, "params_mt_"+string(rune('0'+i))+".yaml")
		got, err := store.ReadParams(path)
		if err != nil {
			t.Fatalf("toy %d params: %v", i, err)
		}
		if got["mu"] != 125 {
			t.Fatalf("toy %d saved params %v", i, got)
		}
	}
}

func TestToysWriteSQLite(t *testing.T) {
	lab := newDemoLab(t)
	ts := settingNoOutput(t, lab, "mass_time")
	db := filepath.Join(t.TempDir(), "toys.db")
	ts.Output.File = db
	toys, _ := lab.NewToysBySetting(ts, 5)
	if _, _, err := toys.Run(context.Background(), 3, 2, false); err != nil {
		t.Fatalf("run: %v", err)
	}
	sink, err := store.OpenSQLite(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()
	for i := range 3 {
		key := "mass_time_" + string(rune('0'+i))
		runs, err := sink.Runs(context.Background(), key)
		if err != nil || len(runs) != 1 {
			t.Fatalf("%s: runs %v err %v", key, runs, err)
		}
	}
}

func TestToysFirstErrorStopsRun(t *testing.T) {
	lab := newDemoLab(t)
	toys, err := lab.NewToysBySetting(&spec.ToySetting{Name: "empty", Yield: 5}, 1)
	if err != nil {
		t.Fatalf("toys: %v", err)
	}
	if _, _, err := toys.Run(context.Background(), 10, 3, false); !errors.Is(err, errs.ErrModelNotSet) {
		t.Fatalf("expected ModelNotSet, got %v", err)
	}
}

func TestToysArgs(t *testing.T) {
	lab := newDemoLab(t)
	toys, _ := lab.NewToys("flavour_only", 1)
	if _, _, err := toys.Run(context.Background(), 0, 1, false); err == nil {
		t.Fatalf("zero toys must fail")
	}
	if _, _, err := toys.Run(context.Background(), 1, 0, false); err == nil {
		t.Fatalf("zero workers must fail")
	}
}

func TestSeedMaker(t *testing.T) {
	a, b := newSeedMaker(42), newSeedMaker(42)
	seen := map[int64]bool{}
	for range 1000 {
		x, y := a.next(), b.next()
		if x != y {
			t.Fatalf("same start seed must give the same sequence")
		}
		if x < 0 {
			t.Fatalf("seed %d is negative", x)
		}
		if seen[x] {
			t.Fatalf("seed %d repeated", x)
		}
		seen[x] = true
	}
	if newSeedMaker(43).next() == newSeedMaker(42).next() {
		t.Fatalf("different start seeds should diverge")
	}
}

func TestCryptoSeedPositive(t *testing.T) {
	s, err := cryptoSeed()
	if err != nil || s < 0 {
		t.Fatalf("crypto seed %d err %v", s, err)
	}
}
