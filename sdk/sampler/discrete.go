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
	"log/slog"
	"slices"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
)

// Distribution 是單一離散變數的累積機率表：Values[i] 對應累積機率 Cum[i]。
//
// Cum 必須非遞減；最後一項不必到 1.0，剩餘機率代表「不指派」。
type Distribution struct {
	Var    string
	Values []float64
	Cum    []float64
}

// Validate 檢查表長度一致、累積機率非遞減且落在 [0,1]。
func (d Distribution) Validate() error {
	if d.Var == "" {
		return errs.Kindf(errs.InvalidConfig, "discrete distribution without variable name")
	}
	if len(d.Values) == 0 || len(d.Values) != len(d.Cum) {
		return errs.Kindf(errs.InvalidConfig, "discrete distribution %q: %d values vs %d cumulative probabilities", d.Var, len(d.Values), len(d.Cum))
	}
	prev := 0.0
	for i, p := range d.Cum {
		if p < prev || p > 1 {
			return errs.Kindf(errs.InvalidConfig, "discrete distribution %q: cumulative probability %v at %d is not in [%v,1]", d.Var, p, i, prev)
		}
		prev = p
	}
	return nil
}

// VarCount 是某變數各值實際被抽中的次數。
type VarCount struct {
	Var    string
	Values []float64
	Counts []int
}

// table 是預先攤平的平行陣列，避免每列配置。
type table struct {
	col    int
	values []float64
	cum    []float64
	counts []int
}

// GenerateDiscrete 為 dists 中的每個離散變數抽 n 列。
//
// 規則：
//   - 變數不在 obs 內：NotGeneratingDiscreteData（致命）。
//   - 變數已在 already（前一步連續生成已填值）：只警告，累積機率的覆寫/挑選依然定義良好。
//   - 每列對每個變數抽一個均勻數，線性掃描第一個累積機率大於它的項目。
//   - 只要該列有任何變數沒有對應項目（表總和 < 1），整列捨棄，不補列。
//     因此輸出列數可能小於 n，呼叫端必須檢查實際列數，短缺屬於設定問題。
//
// 結束時把各值的抽中次數寫入 log 並回傳。
func GenerateDiscrete(c *core.Core, log *slog.Logger, dists []Distribution, obs *data.Set, already []string, n int) (*data.Dataset, []VarCount, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cols := make([]string, 0, len(dists))
	tabs := make([]table, 0, len(dists))
	for _, d := range dists {
		if err := d.Validate(); err != nil {
			return nil, nil, err
		}
		if !obs.Has(d.Var) {
			return nil, nil, errs.Kindf(errs.NotGeneratingDiscreteData, "discrete variable %q is not in observables %s", d.Var, obs)
		}
		if slices.Contains(cols, d.Var) {
			return nil, nil, errs.Kindf(errs.InvalidConfig, "discrete variable %q configured twice", d.Var)
		}
		if slices.Contains(already, d.Var) {
			log.Warn("discrete variable already generated, values will be overlaid", slog.String("var", d.Var))
		}
		tabs = append(tabs, table{
			col:    len(cols),
			values: d.Values,
			cum:    d.Cum,
			counts: make([]int, len(d.Values)),
		})
		cols = append(cols, d.Var)
	}

	out := data.NewWithCap(max(n, 0), cols...)
	row := make([]float64, len(cols))
	picked := make([]int, len(tabs))
	dropped := 0
	for i := 0; i < n; i++ {
		ok := true
		for k := range tabs {
			picked[k] = pick(tabs[k].cum, c.Float64())
			if picked[k] < 0 {
				ok = false
			}
		}
		if !ok {
			dropped++
			continue
		}
		for k := range tabs {
			tb := &tabs[k]
			row[tb.col] = tb.values[picked[k]]
			tb.counts[picked[k]]++
		}
		_ = out.Add(row...)
	}

	counts := make([]VarCount, len(tabs))
	for k, tb := range tabs {
		counts[k] = VarCount{Var: cols[k], Values: slices.Clone(tb.values), Counts: tb.counts}
		for j, v := range tb.values {
			log.Info("discrete generation count", slog.String("var", cols[k]), slog.Float64("value", v), slog.Int("count", tb.counts[j]))
		}
	}
	if dropped > 0 {
		log.Warn("discrete rows dropped: cumulative probabilities do not reach 1", slog.Int("dropped", dropped), slog.Int("requested", n))
	}
	return out, counts, nil
}

// pick 回傳第一個累積機率大於 u 的索引；沒有則回傳 -1。
func pick(cum []float64, u float64) int {
	for j, p := range cum {
		if p > u {
			return j
		}
	}
	return -1
}
