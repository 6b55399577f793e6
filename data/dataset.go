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

// Package data 定義生成引擎操作的資料結構：觀測量（Var / Category / Set）與資料集（Dataset），
// 以及資料集的三種組合原語 Merge / Append / MixMerge。
//
// 不變式：
//   - 一個 Dataset 內所有列共用同一組欄位（Columns）。
//   - 列一旦加入就不會被就地修改；所有組合操作都以新建列的方式完成，因此列切片可以安全共用。
package data

import (
	"slices"

	"github.com/zintix-labs/toylab/errs"
)

// Dataset 是有序的列序列；每列對欄位集合中的每一欄都有值，並帶一個權重（預設 1）。
// 類別欄位的值為狀態索引。
type Dataset struct {
	cols    []string
	index   map[string]int
	rows    [][]float64
	weights []float64
}

// New 建立指定欄位的空資料集，重複欄位名稱只保留第一次出現。
func New(cols ...string) *Dataset {
	d := &Dataset{
		cols:  make([]string, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if _, ok := d.index[c]; ok {
			continue
		}
		d.index[c] = len(d.cols)
		d.cols = append(d.cols, c)
	}
	return d
}

// NewWithCap 與 New 相同，但預先配置 n 列容量。
func NewWithCap(n int, cols ...string) *Dataset {
	d := New(cols...)
	d.rows = make([][]float64, 0, n)
	d.weights = make([]float64, 0, n)
	return d
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

func (d *Dataset) Width() int {
	if d == nil {
		return 0
	}
	return len(d.cols)
}

// Columns 回傳欄位名稱副本。
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.cols)
}

func (d *Dataset) Has(col string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[col]
	return ok
}

// HasAll 判斷 cols 是否全部是本資料集的欄位。
func (d *Dataset) HasAll(cols []string) bool {
	for _, c := range cols {
		if !d.Has(c) {
			return false
		}
	}
	return true
}

// SameColumns 雙向包含檢查：兩資料集欄位集合相同（順序可不同）。
func (d *Dataset) SameColumns(o *Dataset) bool {
	return d.Width() == o.Width() && d.HasAll(o.Columns()) && o.HasAll(d.Columns())
}

// Overlap 回傳兩資料集共同擁有的欄位（依 d 的欄位順序）。
func (d *Dataset) Overlap(o *Dataset) []string {
	var out []string
	for _, c := range d.Columns() {
		if o.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Add 以欄位順序加入一列，權重為 1。
func (d *Dataset) Add(row ...float64) error {
	return d.AddWeighted(1, row)
}

// AddWeighted 加入一列並指定權重。列會被複製。
func (d *Dataset) AddWeighted(w float64, row []float64) error {
	if len(row) != len(d.cols) {
		return errs.Fatalf("row width %d does not match dataset width %d", len(row), len(d.cols))
	}
	d.rows = append(d.rows, slices.Clone(row))
	d.weights = append(d.weights, w)
	return nil
}

// addOwned 加入一列但不複製，呼叫端保證之後不再修改 row。
func (d *Dataset) addOwned(w float64, row []float64) {
	d.rows = append(d.rows, row)
	d.weights = append(d.weights, w)
}

// Row 回傳第 i 列（唯讀，不可修改）。
func (d *Dataset) Row(i int) []float64 {
	return d.rows[i]
}

// Value 回傳第 i 列的 col 欄位值；欄位不存在時 ok 為 false。
func (d *Dataset) Value(i int, col string) (float64, bool) {
	j, ok := d.index[col]
	if !ok {
		return 0, false
	}
	return d.rows[i][j], true
}

func (d *Dataset) Weight(i int) float64 {
	return d.weights[i]
}

// SumWeights 回傳所有列權重總和。
func (d *Dataset) SumWeights() float64 {
	sum := 0.0
	for _, w := range d.weights {
		sum += w
	}
	return sum
}

// Column 回傳某欄位全部的值（新配置）。
func (d *Dataset) Column(col string) ([]float64, bool) {
	j, ok := d.index[col]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[j]
	}
	return out, true
}

// Slice 回傳 [from,to) 範圍的新資料集，範圍會被夾在 [0,Len] 內。
func (d *Dataset) Slice(from, to int) *Dataset {
	n := d.Len()
	from = min(max(from, 0), n)
	to = min(max(to, from), n)
	out := NewWithCap(to-from, d.cols...)
	out.rows = append(out.rows, d.rows[from:to]...)
	out.weights = append(out.weights, d.weights[from:to]...)
	return out
}

// Head 回傳前 n 列；資料不足時循環重用既有列。空資料集回傳空結果。
func (d *Dataset) Head(n int) *Dataset {
	if n <= d.Len() || d.Len() == 0 {
		return d.Slice(0, n)
	}
	out := NewWithCap(n, d.cols...)
	for i := 0; i < n; i++ {
		k := i % len(d.rows)
		out.addOwned(d.weights[k], d.rows[k])
	}
	return out
}

// Clone 回傳淺層複製（列切片共用，列不可變）。
func (d *Dataset) Clone() *Dataset {
	return d.Slice(0, d.Len())
}

// WithColumn 回傳新增一個常數欄位後的新資料集；欄位已存在時覆寫其值。
func (d *Dataset) WithColumn(col string, v float64) *Dataset {
	if j, ok := d.index[col]; ok {
		out := NewWithCap(d.Len(), d.cols...)
		for i, r := range d.rows {
			nr := slices.Clone(r)
			nr[j] = v
			out.addOwned(d.weights[i], nr)
		}
		return out
	}
	cols := append(d.Columns(), col)
	out := NewWithCap(d.Len(), cols...)
	for i, r := range d.rows {
		nr := make([]float64, len(r)+1)
		copy(nr, r)
		nr[len(r)] = v
		out.addOwned(d.weights[i], nr)
	}
	return out
}

// Release 釋放資料集持有的列。遞迴框架對自己擁有的 proto 資料集在所有離開路徑上呼叫。
func (d *Dataset) Release() {
	if d == nil {
		return
	}
	d.rows = nil
	d.weights = nil
}

// reorder 把 src 的第 i 列依 d 的欄位順序重排。呼叫端需保證欄位集合相同。
func (d *Dataset) reorder(src *Dataset, i int) []float64 {
	row := make([]float64, len(d.cols))
	for j, c := range d.cols {
		row[j] = src.rows[i][src.index[c]]
	}
	return row
}
