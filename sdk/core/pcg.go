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

package core

import (
	r2 "math/rand/v2"
)

// pcgSource 以標準庫 PCG 為底，提供 PRNG 合約。
// 有界整數與浮點數交給 r2.Rand 處理（無偏、53-bit 精度）。
type pcgSource struct {
	src *r2.PCG
	rnd *r2.Rand
}

// newPCGWithSeed 以 splitmix64 把單一 seed 展開成 PCG 的兩個 128-bit 狀態字。
func newPCGWithSeed(seed int64) *pcgSource {
	x := uint64(seed) ^ 0x9e3779b97f4a7c15
	hi := splitmix64(x)
	lo := splitmix64(x ^ 0xDA942042E4DD58B5)
	src := r2.NewPCG(hi, lo)
	return &pcgSource{src: src, rnd: r2.New(src)}
}

func (p *pcgSource) Uint64() uint64 {
	return p.src.Uint64()
}

func (p *pcgSource) Float64() float64 {
	return p.rnd.Float64()
}

// IntN 回傳 [0,max)；max <= 0 時回傳 -1（熱路徑用哨兵值，不 panic）。
func (p *pcgSource) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return p.rnd.IntN(max)
}

func (p *pcgSource) Snapshot() ([]byte, error) {
	return p.src.MarshalBinary()
}

func (p *pcgSource) Restore(data []byte) error {
	return p.src.UnmarshalBinary(data)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
