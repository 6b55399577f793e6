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

// Package sampler 提供生成引擎使用的離散抽樣工具。
//
// 本檔案 (aliastable.go) 實作 Vose's Alias Method（浮點權重版），
// 供分箱密度（pdf.Histogram）依箱內容量挑選箱子。
//
// 特性：
//   - 建表 O(N)，抽樣 O(1)（固定一次 IntN + 一次 Float64）。
//   - 權重可為任意非負實數，不需事先正規化。
package sampler

import (
	"math"

	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的 O(1) 加權抽樣結構。
//
//   - Prob: 每個槽位保留「自己」的機率（已乘上 N 並以 1 為門檻）。
//   - Aliases: 槽位機率不足時改選的別名索引。
type AliasTable struct {
	Prob    []float64
	Aliases []int
	Size    int
}

// BuildAliasTable 依非負權重建立 AliasTable。
// 負權重、非有限值或總和為 0 時回傳 InvalidConfig。
func BuildAliasTable(weights []float64) (*AliasTable, error) {
	n := len(weights)
	if n == 0 {
		return &AliasTable{}, nil
	}
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errs.Kindf(errs.InvalidConfig, "alias table: invalid weight %v at %d", w, i)
		}
		total += w
	}
	if total == 0 {
		return nil, errs.Kindf(errs.InvalidConfig, "alias table: all weights are zero")
	}

	prob := make([]float64, n)
	aliases := make([]int, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		prob[i] = w * float64(n) / total // 平均值正規化為 1
		aliases[i] = i
		if prob[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l
		prob[l] = prob[l] + prob[s] - 1
		if prob[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	// 浮點誤差殘留的槽位視為滿機率
	for _, i := range large {
		prob[i] = 1
	}
	for _, i := range small {
		prob[i] = 1
	}

	return &AliasTable{Prob: prob, Aliases: aliases, Size: n}, nil
}

// Pick 抽一個索引；空表回傳 -1。
func (at *AliasTable) Pick(c *core.Core) int {
	if at.Size == 0 {
		return -1
	}
	idx := c.IntN(at.Size)
	if c.Float64() < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}
