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

package engine

import (
	"log/slog"
	"slices"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/yield"
)

// ============================================================
// ** Additive **
// ============================================================

// generateAdded 依份額把產量分給各子節點，以 Accumulator 把截斷殘差帶過整個兄弟序列，
// 讓取整後的子產量總和收斂到取整後的總產量。子資料集以 Append 交錯串接。
func (e *Engine) generateAdded(a *model.Additive, obs *data.Set, expected float64, extended bool, proto []*data.Dataset, states []data.CategoryState) (*data.Dataset, error) {
	self := false
	if !yieldSet(expected) {
		expected = a.ExpectedEvents(obs)
		self = true
	}
	shares := addShares(a, obs, expected, self)

	merged, err := data.MergeVector(proto)
	if err != nil {
		return nil, err
	}
	defer merged.Release()

	var (
		acc yield.Accumulator
		out *data.Dataset
		pos float64
	)
	for i, child := range a.Children {
		sub := shares[i]
		if extended {
			sub = e.core.Poisson(sub)
		}

		var childProto []*data.Dataset
		if merged != nil && merged.Len() > 0 {
			from := int(pos)
			childProto = []*data.Dataset{merged.Slice(from, from+yield.Pad(sub))}
		}
		pos += sub

		// 修正後的負產量仍是明確的零，不能落入「未設定」
		sub = max(acc.Fold(sub), 0)
		e.log.Debug("additive share",
			slog.String("model", a.Name()),
			slog.String("child", child.Name()),
			slog.Float64("sub", sub),
			slog.Float64("residual", acc.Residual()),
		)

		ds, err := e.generate(child, obs, sub, false, childProto, states)
		releaseAll(childProto)
		if err != nil {
			out.Release()
			return nil, err
		}
		if out == nil {
			out = ds
			continue
		}
		next, err := data.Append(e.core, out, ds)
		out.Release()
		ds.Release()
		if err != nil {
			return nil, errs.Wrap(err, "additive "+a.Name())
		}
		out = next
	}
	return out, nil
}

// addShares 回傳每個子節點的子產量（尚未 Poisson 化與殘差修正）。
func addShares(a *model.Additive, obs *data.Set, expected float64, self bool) []float64 {
	n := len(a.Children)
	subs := make([]float64, n)
	switch a.Mode() {
	case model.SelfExtended:
		total := a.ExpectedEvents(obs)
		if total == 0 {
			return subs
		}
		for i, c := range a.Children {
			subs[i] = c.ExpectedEvents(obs) / total * expected
		}
	case model.Fractions:
		rest := 1.0
		for i, p := range a.Coefs {
			subs[i] = p.Value * expected
			rest -= p.Value
		}
		subs[n-1] = rest * expected
	case model.Literal:
		// 節點本身的期望值就是係數總和：係數直接是子產量
		if self {
			for i, p := range a.Coefs {
				subs[i] = p.Value
			}
			return subs
		}
		total := a.ExpectedEvents(obs)
		if total == 0 {
			return subs
		}
		for i, p := range a.Coefs {
			subs[i] = p.Value / total * expected
		}
	}
	return subs
}

// ============================================================
// ** Product **
// ============================================================

// generateProduct 以同一個（必要時先 Poisson 化一次的）產量生成每個因子，再逐欄合併。
// 傳入的 proto 欄位視為可忽略的重疊，避免共用條件欄位觸發不相交錯誤。
func (e *Engine) generateProduct(p *model.Product, obs *data.Set, expected float64, extended bool, proto []*data.Dataset, states []data.CategoryState) (*data.Dataset, error) {
	if !yieldSet(expected) {
		expected = p.ExpectedEvents(obs)
	}
	if extended {
		expected = e.core.Poisson(expected)
	}
	ignore := make([][]string, 0, len(proto))
	for _, d := range proto {
		if d != nil {
			ignore = append(ignore, d.Columns())
		}
	}

	var out *data.Dataset
	for _, child := range p.Children {
		ds, err := e.generate(child, obs.Only(child.Depends()), expected, false, proto, states)
		if err != nil {
			out.Release()
			return nil, err
		}
		if out == nil {
			out = ds
			continue
		}
		if err := data.Merge(out, ds, ignore, true); err != nil {
			out.Release()
			return nil, errs.Wrap(err, "product "+p.Name())
		}
	}
	if out == nil {
		out = data.New(obs.Names()...)
	}
	return out, nil
}

// ============================================================
// ** Simultaneous **
// ============================================================

// generateSimultaneous 對索引類別的每個狀態生成對應子模型，蓋上狀態值後串接。
// 狀態以不可變的 CategoryState 往下傳，不修改共用的類別。
func (e *Engine) generateSimultaneous(s *model.Simultaneous, obs *data.Set, expected float64, extended bool, proto []*data.Dataset, states []data.CategoryState) (*data.Dataset, error) {
	if expected > 0 {
		e.log.Warn("simultaneous model with explicit yield: every category is generated at that size",
			slog.String("model", s.Name()),
			slog.Float64("yield", expected),
		)
	}
	rest := obs.Without(s.IndexColumns()...)

	var out *data.Dataset
	for i := range s.Index.States {
		st := s.Index.State(i)
		child, ok := s.Child(st)
		if !ok {
			e.log.Warn("no model for category state", slog.String("model", s.Name()), slog.String("state", st.Label))
			continue
		}
		comps := s.Index.Decompose(i)
		sub := append(slices.Clone(states), st)
		sub = append(sub, comps...)

		ds, err := e.generate(child, rest, expected, extended, proto, sub)
		if err != nil {
			out.Release()
			return nil, err
		}
		stamped := stamp(ds, st, comps)

		if out == nil {
			out = stamped
			continue
		}
		next, err := data.Append(e.core, out, stamped)
		out.Release()
		stamped.Release()
		if err != nil {
			return nil, errs.Wrap(err, "simultaneous "+s.Name())
		}
		out = next
	}
	if out == nil {
		out = data.New(obs.Names()...)
	}
	return out, nil
}

// stamp 為資料集加上索引類別（與其組成類別）的狀態值欄位，並釋放原資料集。
func stamp(ds *data.Dataset, st data.CategoryState, comps []data.CategoryState) *data.Dataset {
	out := ds.WithColumn(st.Category, float64(st.Index))
	ds.Release()
	for _, cs := range comps {
		next := out.WithColumn(cs.Category, float64(cs.Index))
		out.Release()
		out = next
	}
	return out
}

// ============================================================
// ** Primitive **
// ============================================================

// generatePrimitive 把產量取整後交給模型的生成器。
//
//   - 產量取整為 0：回傳空資料集，欄位為觀測量與 proto 欄位的聯集，絕不產生一列。
//   - 觀測量全由 proto 提供：直接取 proto 的前 n 列，不再 Poisson 化。
//   - 其餘：以扣除 proto 欄位後的觀測量生成，再把對齊的 proto 欄位併回結果。
func (e *Engine) generatePrimitive(p *model.Primitive, obs *data.Set, expected float64, extended bool, proto []*data.Dataset, states []data.CategoryState) (*data.Dataset, error) {
	n := yield.Count(expected)

	merged, err := data.MergeVector(proto)
	if err != nil {
		return nil, err
	}
	defer merged.Release()

	var protoCols []string
	if merged != nil {
		protoCols = merged.Columns()
	}
	reduced := obs.Without(protoCols...)

	if n == 0 {
		cols := reduced.Names()
		for _, c := range protoCols {
			if !slices.Contains(cols, c) {
				cols = append(cols, c)
			}
		}
		return data.New(cols...), nil
	}

	hasProto := merged != nil && merged.Len() > 0
	if hasProto && merged.Len() < n {
		e.log.Warn("insufficient proto data, rows will be reused",
			slog.String("model", p.Name()),
			slog.Int("need", n),
			slog.Int("have", merged.Len()),
		)
	}

	if reduced.Len() == 0 {
		if !hasProto {
			e.log.Warn("nothing to generate: no observables left", slog.String("model", p.Name()))
			return data.New(protoCols...), nil
		}
		return merged.Head(n), nil
	}

	req := model.Request{Obs: reduced, N: n, Extended: extended, States: states}
	if hasProto {
		req.Proto = merged.Head(n)
	}
	ds, err := p.Gen.Generate(e.core, req)
	if err != nil {
		return nil, errs.Wrap(err, "primitive "+p.Name())
	}

	// 生成器只輸出扣除 proto 後的欄位；把 proto 欄位依列對齊併回（空結果也要補欄位）
	if merged != nil && (hasProto || ds.Len() == 0) && !ds.HasAll(protoCols) {
		if err := data.Merge(ds, merged.Head(ds.Len()), [][]string{protoCols}, true); err != nil {
			return nil, errs.Wrap(err, "primitive "+p.Name())
		}
	}
	return ds, nil
}

func releaseAll(list []*data.Dataset) {
	for _, d := range list {
		d.Release()
	}
}
