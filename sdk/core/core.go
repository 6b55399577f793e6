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

// Package core 提供 toylab 唯一的亂數串流（Core）。
//
// 所有隨機決策（離散表抽樣、Poisson 化、Append 的 Fisher-Yates 洗牌、MixMerge 的位置挑選、
// primitive 的取樣）都必須從同一個 *Core 取數，因此只要在最上層呼叫前 seed 一次，整次生成即可重現。
// 引擎本身從不 seed。
package core

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// Uint64 同時讓 *Core 滿足 math/rand/v2 的 rand.Source，
// 因此可以直接作為 gonum distuv 各分佈的 Src。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作、同一版本下，New(seed) 必須是決定性的。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG）。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return newPCGWithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// Core 封裝 PRNG，並提供生成引擎需要的取樣工具。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// NewWithSeed 以預設 PRNG 與 seed 建立 Core，主要給測試與單次生成使用。
func NewWithSeed(seed int64) *Core {
	return New(Default().New(seed))
}

// Uniform 回傳 [lo,hi) 的均勻亂數。
func (c *Core) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*c.Float64()
}

// Poisson 以 mean 為期望值抽一個 Poisson 整數（以 float64 表示）。
// mean <= 0 或非有限值時回傳 0。
func (c *Core) Poisson(mean float64) float64 {
	if !(mean > 0) || math.IsInf(mean, 0) {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: c}
	return p.Rand()
}

// Gaus 回傳常態分佈亂數。sigma <= 0 時直接回傳 mu。
func (c *Core) Gaus(mu, sigma float64) float64 {
	if !(sigma > 0) {
		return mu
	}
	n := distuv.Normal{Mu: mu, Sigma: sigma, Src: c}
	return n.Rand()
}

// Perm 回傳 [0,n) 的隨機排列。
func (c *Core) Perm(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	c.ShuffleInts(idx)
	return idx
}

// ShuffleInts 使用 Fisher-Yates (Knuth Shuffle) 對 []int 就地隨機重排。
// 所有 N! 種排列機率相等，O(N) 時間、零配置。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
