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
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/sdk/sampler"
)

// ============================================================
// ** Uniform **
// ============================================================

// Uniform 在觀測量範圍內均勻分佈。
type Uniform struct{ base }

func NewUniform(obs string, n *model.Param) *Uniform {
	return &Uniform{base{obs: obs, n: n}}
}

func (u *Uniform) Params() []*model.Param { return u.params() }

func (u *Uniform) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	return generate(c, req, u.obs, func(c *core.Core, v *data.Var, _ model.Request, _ int) (float64, error) {
		return flat(c, v), nil
	})
}

// ============================================================
// ** Gauss **
// ============================================================

// Gauss 是截斷在觀測量範圍內的常態分佈。
type Gauss struct {
	base
	Mu    *model.Param
	Sigma *model.Param
}

func NewGauss(obs string, mu, sigma, n *model.Param) *Gauss {
	return &Gauss{base: base{obs: obs, n: n}, Mu: mu, Sigma: sigma}
}

func (g *Gauss) Params() []*model.Param { return g.params(g.Mu, g.Sigma) }

func (g *Gauss) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	dist := distuv.Normal{Mu: g.Mu.Value, Sigma: g.Sigma.Value, Src: c}
	return generate(c, req, g.obs, func(_ *core.Core, v *data.Var, _ model.Request, _ int) (float64, error) {
		return truncated("gauss "+g.obs, v.Min, v.Max, dist.Rand)
	})
}

// ============================================================
// ** Exponential **
// ============================================================

// Exponential 是 exp(-(x-Min)/Tau) 截斷在觀測量範圍內，以反 CDF 取樣。
type Exponential struct {
	base
	Tau *model.Param
}

func NewExponential(obs string, tau, n *model.Param) *Exponential {
	return &Exponential{base: base{obs: obs, n: n}, Tau: tau}
}

func (e *Exponential) Params() []*model.Param { return e.params(e.Tau) }

func (e *Exponential) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	if !(e.Tau.Value > 0) {
		return nil, errs.Kindf(errs.InvalidConfig, "exponential %s: tau must be > 0, got %v", e.obs, e.Tau.Value)
	}
	dist := distuv.Exponential{Rate: 1 / e.Tau.Value}
	return generate(c, req, e.obs, func(c *core.Core, v *data.Var, _ model.Request, _ int) (float64, error) {
		hi := dist.CDF(v.Max - v.Min)
		return v.Min + dist.Quantile(c.Float64()*hi), nil
	})
}

// ============================================================
// ** Histogram **
// ============================================================

// Histogram 是分箱密度：依箱內容量（AliasTable）挑箱，箱內均勻。
type Histogram struct {
	base
	Edges []float64
	table *sampler.AliasTable
}

// NewHistogram 建立分箱密度；len(edges) 必須是 len(contents)+1 且遞增。
func NewHistogram(obs string, edges, contents []float64, n *model.Param) (*Histogram, error) {
	if len(edges) != len(contents)+1 {
		return nil, errs.Kindf(errs.InvalidConfig, "histogram %s: %d edges for %d bins", obs, len(edges), len(contents))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, errs.Kindf(errs.InvalidConfig, "histogram %s: edges must increase", obs)
		}
	}
	at, err := sampler.BuildAliasTable(contents)
	if err != nil {
		return nil, errs.Wrap(err, "histogram "+obs)
	}
	return &Histogram{base: base{obs: obs, n: n}, Edges: edges, table: at}, nil
}

func (h *Histogram) Params() []*model.Param { return h.params() }

func (h *Histogram) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	return generate(c, req, h.obs, func(c *core.Core, v *data.Var, _ model.Request, _ int) (float64, error) {
		lo := math.Max(h.Edges[0], v.Min)
		hi := math.Min(h.Edges[len(h.Edges)-1], v.Max)
		return truncated("histogram "+h.obs, lo, hi, func() float64 {
			b := h.table.Pick(c)
			return c.Uniform(h.Edges[b], h.Edges[b+1])
		})
	})
}

// ============================================================
// ** CategoryPdf **
// ============================================================

// CategoryPdf 依權重挑類別狀態。
type CategoryPdf struct {
	base
	table *sampler.AliasTable
}

// NewCategoryPdf 建立類別密度；weights 與類別狀態一一對應。
func NewCategoryPdf(cat *data.Category, weights []float64, n *model.Param) (*CategoryPdf, error) {
	if len(weights) != len(cat.States) {
		return nil, errs.Kindf(errs.InvalidConfig, "category pdf %s: %d weights for %d states", cat.Name, len(weights), len(cat.States))
	}
	at, err := sampler.BuildAliasTable(weights)
	if err != nil {
		return nil, errs.Wrap(err, "category pdf "+cat.Name)
	}
	return &CategoryPdf{base: base{obs: cat.Name, n: n}, table: at}, nil
}

func (p *CategoryPdf) Params() []*model.Param { return p.params() }

func (p *CategoryPdf) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	return generate(c, req, p.obs, func(c *core.Core, _ *data.Var, _ model.Request, _ int) (float64, error) {
		return float64(p.table.Pick(c)), nil
	})
}

// ============================================================
// ** Resolution（條件式）**
// ============================================================

// Resolution 是以 proto 欄位為條件的常態分佈：x ~ N(Mu, Scale·err)，err 取自 proto 的 Cond 欄位。
// 沒有 proto 或 proto 缺少 Cond 欄位時回傳 InvalidConfig。
type Resolution struct {
	base
	Cond  string
	Mu    *model.Param
	Scale *model.Param
}

func NewResolution(obs, cond string, mu, scale, n *model.Param) *Resolution {
	return &Resolution{base: base{obs: obs, n: n}, Cond: cond, Mu: mu, Scale: scale}
}

func (r *Resolution) Params() []*model.Param { return r.params(r.Mu, r.Scale) }

func (r *Resolution) Depends() []string {
	return []string{r.obs, r.Cond}
}

func (r *Resolution) Generate(c *core.Core, req model.Request) (*data.Dataset, error) {
	if req.Proto == nil || req.Proto.Len() == 0 || !req.Proto.Has(r.Cond) {
		return nil, errs.Kindf(errs.InvalidConfig, "resolution %s: conditional observable %q needs proto data", r.obs, r.Cond)
	}
	return generate(c, req, r.obs, func(c *core.Core, v *data.Var, req model.Request, row int) (float64, error) {
		e, _ := req.Proto.Value(row%req.Proto.Len(), r.Cond)
		sigma := r.Scale.Value * e
		return truncated("resolution "+r.obs, v.Min, v.Max, func() float64 {
			return c.Gaus(r.Mu.Value, sigma)
		})
	})
}
