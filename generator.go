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
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/engine"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/sdk/sampler"
	"github.com/zintix-labs/toylab/spec"
	"github.com/zintix-labs/toylab/store"
	"github.com/zintix-labs/toylab/yield"
)

// Result 是一次生成的結果。Data 由呼叫端擁有，用完可呼叫 Data.Release()。
type Result struct {
	RunID    uuid.UUID
	Name     string
	Key      string
	Seed     int64
	Expected float64            // 生成時的期望事件數（設定值或模型自己的期望值）
	Data     *data.Dataset
	Params   map[string]float64 // 生成時實際使用的參數值
	Counts   []sampler.VarCount // 離散變數各值的抽中次數
	Stored   bool
}

// Generator 封裝「一份設定 + 一條亂數流」的生成入口。
//
// 並發語意：同一個 Generator 內部以 mutex 串行化；要平行生成請建立多個 Generator（見 Toys）。
// 每次 Generate 都會由 registry 重新建出模型樹，參數改寫不會殘留到下一次。
type Generator struct {
	setting  *spec.ToySetting
	reg      *model.Registry
	cf       core.PRNGFactory
	core     *core.Core
	log      *slog.Logger
	initseed int64
	mu       sync.Mutex
}

func newGenerator(ts *spec.ToySetting, reg *model.Registry, cf core.PRNGFactory, seed int64, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		setting:  ts,
		reg:      reg,
		cf:       cf,
		core:     core.New(cf.New(seed)),
		log:      log.With(slog.String("toy", ts.Name)),
		initseed: seed,
	}
}

func (g *Generator) Name() string { return g.setting.Name }

// Seed 回傳建立（或最後一次 reseed）時的 seed。
func (g *Generator) Seed() int64 { return g.initseed }

// Setting 回傳設定的複本。
func (g *Generator) Setting() *spec.ToySetting { return g.setting.Clone() }

// SnapshotCore 保存亂數流狀態；搭配 RestoreCore 可在任意時間點重現下一次生成。
func (g *Generator) SnapshotCore() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.core.Snapshot()
}

func (g *Generator) RestoreCore(b []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.core.Restore(b)
}

// reseed 以新的 seed 重建亂數流（Toys 的 worker 在每個 toy 開始前呼叫）。
func (g *Generator) reseed(seed int64) {
	g.core = core.New(g.cf.New(seed))
	g.initseed = seed
}

// Generate 執行一次完整生成，並依輸出設定寫出資料集。
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sink, err := store.Open(g.setting.Output)
	if err != nil {
		return nil, err
	}
	res, err := g.generate(ctx, g.setting.Output.Key, sink)
	if sink != nil {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = errs.Wrap(cerr, "close output")
		}
	}
	return res, err
}

// generate 是 Generate 的本體：
//
//  1. 讀參數：設定內的 param_values，再讀參數檔（後者覆蓋前者）。
//  2. 外部約束：以 N(mean, sigma) 重新抽出被約束的參數。
//  3. 以分解派送器在頂層模型上生成連續資料。
//  4. 有離散分佈時生成離散資料並合併。
//  5. 保存參數、寫出資料集。
func (g *Generator) generate(ctx context.Context, key string, sink store.Sink) (*Result, error) {
	ts := g.setting
	if ts.Model == "" && len(ts.Discrete) == 0 {
		return nil, errs.Kindf(errs.ModelNotSet, "toy %s: neither model nor discrete variables", ts.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "generate canceled")
	}

	res := &Result{RunID: uuid.New(), Name: ts.Name, Key: key, Seed: g.initseed}

	var (
		ws  *model.Workspace
		obs *data.Set
		err error
	)
	if ts.Model != "" {
		ws, err = g.reg.Build(ts.Model)
		if err != nil {
			return nil, err
		}
		if ws == nil || ws.Model == nil {
			return nil, errs.Kindf(errs.ModelNotSet, "model builder %s returned no model", ts.Model)
		}
		obs, err = observables(ws.Observables, ts.Observables)
		if err != nil {
			return nil, err
		}
		if err := g.applyParams(ws.Model); err != nil {
			return nil, err
		}
		if err := g.drawConstraints(ws.Model); err != nil {
			return nil, err
		}
	} else {
		obs, err = discreteObservables(ts.Discrete)
		if err != nil {
			return nil, err
		}
	}

	var ds *data.Dataset
	if ws != nil {
		// 離散變數交給離散抽樣器；模型本身依賴的類別（例如同時性索引）保留在連續生成內。
		cont := obs.Without(discreteOnly(ts.Discrete, ws.Model.Depends())...)
		res.Expected = ts.Yield
		if !(res.Expected > 0) {
			res.Expected = ws.Model.ExpectedEvents(cont)
		}
		eng := engine.New(g.core, g.log, newSectionProvider(g.reg, ts, g.core, g.log))
		ds, err = eng.Generate(ws.Model, cont, ts.Yield, ts.Poisson, nil)
		if err != nil {
			return nil, err
		}
		g.log.Info("continuous data generated", slog.String("model", ts.Model), slog.Int("rows", ds.Len()), slog.Float64("expected", res.Expected))
	} else {
		res.Expected = ts.Yield
	}

	if len(ts.Discrete) > 0 {
		if err := ctx.Err(); err != nil {
			ds.Release()
			return nil, errs.Wrap(err, "generate canceled")
		}
		ds, res.Counts, err = g.generateDiscrete(ds, obs)
		if err != nil {
			return nil, err
		}
	}
	res.Data = ds

	res.Params = map[string]float64{}
	if ws != nil {
		for _, p := range model.Params(ws.Model) {
			res.Params[p.Name] = p.Value
		}
	}
	if ts.Params.Save != "" {
		if err := store.SaveParams(strings.ReplaceAll(ts.Params.Save, "{key}", key), res.Params); err != nil {
			return nil, err
		}
	}
	if sink != nil {
		rec := store.Record{RunID: res.RunID, Key: key, Data: ds, Params: res.Params}
		if err := sink.Write(ctx, rec); err != nil {
			return nil, err
		}
		res.Stored = true
	}
	return res, nil
}

// generateDiscrete 生成離散資料並與連續資料合併。
//
//   - 沒有連續資料：離散資料就是結果，列數為設定產量（Poisson 時變動）。
//   - 欄位不重疊：Merge；離散表總和 < 1 造成的短缺以截斷連續資料對齊並警告。
//   - 離散欄位都已存在於連續資料：MixMerge 覆蓋。
//   - 部分重疊：設定錯誤。
func (g *Generator) generateDiscrete(cont *data.Dataset, obs *data.Set) (*data.Dataset, []sampler.VarCount, error) {
	ts := g.setting
	dists, err := distributions(ts.Discrete, obs)
	if err != nil {
		cont.Release()
		return nil, nil, err
	}
	var (
		n       int
		already []string
	)
	if cont != nil {
		n = cont.Len()
		already = cont.Columns()
	} else {
		if !(ts.Yield > 0) {
			return nil, nil, errs.Kindf(errs.InvalidConfig, "toy %s: discrete-only generation needs a yield", ts.Name)
		}
		y := ts.Yield
		if ts.Poisson {
			y = g.core.Poisson(y)
		}
		n = yield.Count(y)
	}

	disc, counts, err := sampler.GenerateDiscrete(g.core, g.log, dists, obs, already, n)
	if err != nil {
		cont.Release()
		return nil, nil, err
	}
	if cont == nil {
		return disc, counts, nil
	}

	overlap := cont.Overlap(disc)
	switch {
	case len(overlap) == 0:
		if disc.Len() < cont.Len() {
			g.log.Warn("continuous rows trimmed to discrete rows", slog.Int("continuous", cont.Len()), slog.Int("discrete", disc.Len()))
			trimmed := cont.Slice(0, disc.Len())
			cont.Release()
			cont = trimmed
		}
		if err := data.Merge(cont, disc, nil, true); err != nil {
			return nil, nil, err
		}
		return cont, counts, nil
	case len(overlap) == disc.Width():
		out, err := data.MixMerge(g.core, cont, disc)
		cont.Release()
		disc.Release()
		if err != nil {
			return nil, nil, err
		}
		return out, counts, nil
	default:
		cont.Release()
		disc.Release()
		return nil, nil, errs.Kindf(errs.InvalidConfig, "toy %s: discrete columns %v partially overlap generated columns", ts.Name, overlap)
	}
}

// observables 取出設定指定的觀測量子集合；names 為空代表全部。
func observables(all *data.Set, names []string) (*data.Set, error) {
	if all == nil || all.Len() == 0 {
		return nil, errs.Kindf(errs.InvalidConfig, "workspace has no observables")
	}
	if len(names) == 0 {
		return all, nil
	}
	for _, n := range names {
		if !all.Has(n) {
			return nil, errs.Kindf(errs.InvalidConfig, "observable %q is not defined in workspace %s", n, all)
		}
	}
	return all.Only(names), nil
}

// discreteOnly 回傳只由離散抽樣器負責的變數（模型不依賴者）。
func discreteOnly(ds []spec.DiscreteSetting, depends []string) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		if !slices.Contains(depends, d.Var) {
			out = append(out, d.Var)
		}
	}
	return out
}

// discreteObservables 在沒有模型時由離散設定推出觀測量：
// 以標籤指定值的變數成為類別（狀態依出現順序），其餘為涵蓋所有值的實數變數。
func discreteObservables(ds []spec.DiscreteSetting) (*data.Set, error) {
	vars := make([]*data.Var, 0, len(ds))
	for _, d := range ds {
		labels := make([]string, 0, len(d.Entries))
		lo, hi := 0.0, 0.0
		for i, e := range d.Entries {
			if e.Label != "" {
				if !slices.Contains(labels, e.Label) {
					labels = append(labels, e.Label)
				}
				continue
			}
			if i == 0 || e.Value < lo {
				lo = e.Value
			}
			if i == 0 || e.Value > hi {
				hi = e.Value
			}
		}
		switch {
		case len(labels) == len(d.Entries):
			vars = append(vars, data.NewCatVar(data.NewCategory(d.Var, labels...)))
		case len(labels) == 0:
			vars = append(vars, data.NewReal(d.Var, lo, hi))
		default:
			return nil, errs.Kindf(errs.InvalidConfig, "discrete var %s mixes labels and values", d.Var)
		}
	}
	return data.NewSet(vars...), nil
}

// distributions 把設定轉成抽樣器的累積機率表；標籤換成類別狀態索引。
func distributions(ds []spec.DiscreteSetting, obs *data.Set) ([]sampler.Distribution, error) {
	out := make([]sampler.Distribution, 0, len(ds))
	for _, d := range ds {
		dist := sampler.Distribution{
			Var:    d.Var,
			Values: make([]float64, len(d.Entries)),
			Cum:    make([]float64, len(d.Entries)),
		}
		for i, e := range d.Entries {
			dist.Cum[i] = e.Cum
			dist.Values[i] = e.Value
			if e.Label == "" {
				continue
			}
			v, ok := obs.Get(d.Var)
			if !ok {
				return nil, errs.Kindf(errs.NotGeneratingDiscreteData, "discrete variable %q is not in observables %s", d.Var, obs)
			}
			if !v.IsCategory() {
				return nil, errs.Kindf(errs.InvalidConfig, "discrete var %s: label %q used on a continuous variable", d.Var, e.Label)
			}
			idx, ok := v.Cat.Lookup(e.Label)
			if !ok {
				return nil, errs.Kindf(errs.InvalidConfig, "discrete var %s: unknown state %q", d.Var, e.Label)
			}
			dist.Values[i] = float64(idx)
		}
		out = append(out, dist)
	}
	return out, nil
}
