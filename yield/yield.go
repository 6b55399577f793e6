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

// Package yield 把實數期望事件數轉成整數事件數。
//
// 加法節點對一串兄弟節點分配子產量時，逐一取整會系統性地遺失或多出事件；
// Accumulator 把截斷誤差帶到下一個兄弟，使所有子產量取整後的總和收斂到總產量的取整值。
package yield

import "math"

const (
	// ProtoSigmas proto 樣本在期望值之外額外多備的標準差個數。
	ProtoSigmas = 10.0
	// PadFactor proto 樣本與每個子節點 proto 視窗放大的比例，吸收取整漂移。
	PadFactor = 1.05
)

// Round 四捨五入到最接近的整數，恰好 .5 時遠離零。
func Round(x float64) float64 {
	return math.Round(x)
}

// Count 把產量取整為事件數；負數與非有限值視為 0。
func Count(x float64) int {
	r := Round(x)
	if !(r > 0) || math.IsInf(r, 0) {
		return 0
	}
	return int(r)
}

// Accumulator 是加法節點一次兄弟迭代中的截斷殘差。
// 零值即可使用；每次 Generate 呼叫各自持有一個，不共用，因此演算法可重入。
type Accumulator struct {
	residual float64
}

// Fold 把 sub 的截斷誤差累加進殘差；當殘差取整後絕對值 >= 1 且不恰好為 ±0.5 時，
// 把整數修正折回 sub 並從殘差扣除，回傳修正後的 sub。
//
// 恰好 ±0.5 的殘差不會被解決，直到之後的兄弟把累計值推過門檻。
func (a *Accumulator) Fold(sub float64) float64 {
	a.residual += sub - Round(sub)
	corr := Round(a.residual)
	if math.Abs(corr) >= 1 && math.Abs(a.residual) != 0.5 {
		sub += corr
		a.residual -= corr
	}
	return sub
}

// Residual 回傳目前尚未折回的殘差。
func (a *Accumulator) Residual() float64 {
	return a.residual
}

// ProtoSize 回傳為期望產量 y 準備的 proto 樣本大小：(y + 10·sqrt(y))·1.05 向上取整，至少 1。
func ProtoSize(y float64) int {
	if !(y > 0) {
		return 1
	}
	n := int(math.Ceil((y + ProtoSigmas*math.Sqrt(y)) * PadFactor))
	return max(n, 1)
}

// Pad 回傳子節點 proto 視窗的列數：sub·1.05 向上取整。
func Pad(sub float64) int {
	if !(sub > 0) {
		return 0
	}
	return int(math.Ceil(sub * PadFactor))
}
