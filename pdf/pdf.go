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

// Package pdf 提供幾個一維 primitive 生成器（model.Generator 的實作），
// 給 demo 模型、CLI 與測試使用。取樣一律透過呼叫端傳入的 *core.Core。
//
// 每個生成器只對「自己的觀測量」做分佈取樣；請求中其他觀測量以均勻分佈填值，
// 這樣加法節點下的兄弟節點輸出欄位一致，可以直接 Append。
package pdf

import (
	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
)

const maxTries = 10000

// drawFn 為第 row 列的自有觀測量 v 抽一個值。
type drawFn func(c *core.Core, v *data.Var, req model.Request, row int) (float64, error)

// base 是各生成器共用的部分：自有觀測量名稱與（可選的）期望事件數。
type base struct {
	obs string
	n   *model.Param
}

func (b base) Depends() []string {
	return []string{b.obs}
}

// ExpectedEvents 沒有設定期望事件數時回傳 0（不可延伸）。
func (b base) ExpectedEvents(*data.Set) float64 {
	if b.n == nil {
		return 0
	}
	return b.n.Value
}

func (b base) params(ps ...*model.Param) []*model.Param {
	out := make([]*model.Param, 0, len(ps)+1)
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	if b.n != nil {
		out = append(out, b.n)
	}
	return out
}

// generate 逐列填值：自有觀測量用 draw，其餘觀測量均勻取值。
func generate(c *core.Core, req model.Request, own string, draw drawFn) (*data.Dataset, error) {
	n := req.N
	if req.Extended {
		n = int(c.Poisson(float64(n)))
	}
	vars := req.Obs.Vars()
	out := data.NewWithCap(max(n, 0), req.Obs.Names()...)
	row := make([]float64, len(vars))
	for i := 0; i < n; i++ {
		for j, v := range vars {
			if v.Name != own {
				row[j] = flat(c, v)
				continue
			}
			x, err := draw(c, v, req, i)
			if err != nil {
				return nil, err
			}
			row[j] = x
		}
		if err := out.Add(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// flat 在觀測量範圍內均勻取值；類別則均勻取狀態索引。
func flat(c *core.Core, v *data.Var) float64 {
	if v.IsCategory() {
		return float64(c.IntN(len(v.Cat.States)))
	}
	return c.Uniform(v.Min, v.Max)
}

// truncated 以拒絕法把 draw 限制在 [lo,hi] 內。
func truncated(name string, lo, hi float64, draw func() float64) (float64, error) {
	for i := 0; i < maxTries; i++ {
		x := draw()
		if x >= lo && x <= hi {
			return x, nil
		}
	}
	return 0, errs.Kindf(errs.InvalidConfig, "%s: acceptance too low in [%v,%v]", name, lo, hi)
}
