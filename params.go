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
	"log/slog"
	"maps"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/store"
)

// maxConstraintTries 是有範圍的約束參數重抽上限。
const maxConstraintTries = 1000

// applyParams 依序套用設定內的 param_values 與參數檔；模型上不存在的名稱只警告。
func (g *Generator) applyParams(m model.Model) error {
	values := maps.Clone(g.setting.ParamValues)
	if values == nil {
		values = map[string]float64{}
	}
	if path := g.setting.Params.Read; path != "" {
		fromFile, err := store.ReadParams(path)
		if err != nil {
			return err
		}
		maps.Copy(values, fromFile)
		g.log.Info("params read", slog.String("file", path), slog.Int("count", len(fromFile)))
	}
	if len(values) == 0 {
		return nil
	}
	params := paramIndex(m)
	for _, name := range slices.Sorted(maps.Keys(values)) {
		p, ok := params[name]
		if !ok {
			g.log.Warn("param not found in model", slog.String("param", name))
			continue
		}
		if err := p.Set(values[name]); err != nil {
			return err
		}
	}
	return nil
}

// drawConstraints 為每個外部約束從 N(mean, sigma) 抽出新值；有範圍的參數在範圍內重抽。
func (g *Generator) drawConstraints(m model.Model) error {
	if len(g.setting.Constraints) == 0 {
		return nil
	}
	params := paramIndex(m)
	for _, c := range g.setting.Constraints {
		p, ok := params[c.Param]
		if !ok {
			return errs.Kindf(errs.InvalidConfig, "constraint on unknown param %q", c.Param)
		}
		if p.Constant {
			g.log.Warn("constraint on constant param ignored", slog.String("param", c.Param))
			continue
		}
		gaus := distuv.Normal{Mu: c.Mean, Sigma: c.Sigma, Src: g.core}
		drawn := false
		for range maxConstraintTries {
			v := gaus.Rand()
			if p.InRange(v) {
				p.Value = v
				drawn = true
				break
			}
		}
		if !drawn {
			return errs.Kindf(errs.InvalidConfig, "constraint %s: N(%v,%v) never falls in [%v,%v]", c.Param, c.Mean, c.Sigma, p.Min, p.Max)
		}
		g.log.Debug("constrained param drawn", slog.String("param", p.Name), slog.Float64("value", p.Value))
	}
	return nil
}

func paramIndex(m model.Model) map[string]*model.Param {
	ps := model.Params(m)
	out := make(map[string]*model.Param, len(ps))
	for _, p := range ps {
		out[p.Name] = p
	}
	return out
}
