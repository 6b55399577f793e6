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

package data

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/core"
)

// ============================================================
// ** Merge：欄位合併 **
// ============================================================

// Merge 把 slave 的欄位逐列併入 master（就地修改 master）。
//
// 成立條件：
//  1. master.Len() == slave.Len()
//  2. 欄位不重疊；或每個重疊欄位都出現在 ignore 的某一組欄位內（共用 proto 條件造成的良性重疊）。
//     重疊欄位保留 master 的值。
//
// 任一條件不成立回傳 DatasetsNotDisjoint，master 不會被修改。
// deleteSlave 為 true 時，成功後釋放 slave。
func Merge(master, slave *Dataset, ignore [][]string, deleteSlave bool) error {
	if master == nil || slave == nil {
		return errs.Kindf(errs.DatasetsNotDisjoint, "merge with nil dataset")
	}
	if master.Len() != slave.Len() {
		return errs.Kindf(errs.DatasetsNotDisjoint, "row count mismatch: master=%d slave=%d", master.Len(), slave.Len())
	}
	overlap := master.Overlap(slave)
	for _, c := range overlap {
		if !ignorable(c, ignore) {
			return errs.Kindf(errs.DatasetsNotDisjoint, "column %q exists in both datasets (master=%v slave=%v)", c, master.cols, slave.cols)
		}
	}

	extra := make([]int, 0, slave.Width())
	for j, c := range slave.cols {
		if !master.Has(c) {
			extra = append(extra, j)
		}
	}
	if len(extra) > 0 {
		for _, j := range extra {
			master.index[slave.cols[j]] = len(master.cols)
			master.cols = append(master.cols, slave.cols[j])
		}
		for i, r := range master.rows {
			nr := make([]float64, len(r), len(r)+len(extra))
			copy(nr, r)
			for _, j := range extra {
				nr = append(nr, slave.rows[i][j])
			}
			master.rows[i] = nr
		}
	}
	if deleteSlave {
		slave.Release()
	}
	return nil
}

func ignorable(col string, ignore [][]string) bool {
	for _, set := range ignore {
		if slices.Contains(set, col) {
			return true
		}
	}
	return false
}

// MergeVector 以第一個資料集的複製為起點，依序 Merge 其餘資料集（不釋放輸入）。
// 用於把多份 proto 合併後再往下傳。空列表回傳 nil。
func MergeVector(list []*Dataset) (*Dataset, error) {
	var acc *Dataset
	for _, d := range list {
		if d == nil {
			continue
		}
		if acc == nil {
			acc = d.Clone()
			continue
		}
		if err := Merge(acc, d, nil, false); err != nil {
			return nil, errs.Wrap(err, "merge proto datasets")
		}
	}
	return acc, nil
}

// ============================================================
// ** Append：列串接並隨機交錯 **
// ============================================================

// Append 回傳包含 master 與 slave 全部列的新資料集，列順序以 Fisher-Yates 在合併索引上打亂，
// 避免生成順序（例如物種順序）洩漏到下游分析。
// 兩者欄位集合必須相同，否則回傳 DatasetsNotAppendable。輸入不會被釋放，由呼叫端處理。
func Append(c *core.Core, master, slave *Dataset) (*Dataset, error) {
	if master == nil || slave == nil {
		return nil, errs.Kindf(errs.DatasetsNotAppendable, "append with nil dataset")
	}
	if !master.SameColumns(slave) {
		return nil, errs.Kindf(errs.DatasetsNotAppendable, "column sets differ: %v vs %v", master.cols, slave.cols)
	}
	nm := master.Len()
	n := nm + slave.Len()
	out := NewWithCap(n, master.cols...)
	sameOrder := slices.Equal(master.cols, slave.cols)
	for _, k := range c.Perm(n) {
		if k < nm {
			out.addOwned(master.weights[k], master.rows[k])
			continue
		}
		k -= nm
		if sameOrder {
			out.addOwned(slave.weights[k], slave.rows[k])
		} else {
			out.addOwned(slave.weights[k], master.reorder(slave, k))
		}
	}
	return out, nil
}

// ============================================================
// ** MixMerge：把較小資料集的列隨機覆蓋到較大資料集 **
// ============================================================

// MixMerge 在 master 的索引範圍內挑出 slave.Len() 個「不重複」的隨機位置（以已用集合做拒絕取樣），
// 在這些位置上以 slave 的整列值取代 master 對應欄位，其餘列原樣複製。輸出列數恆等於 master.Len()。
//
// 只用於離散變數的事後覆蓋：slave 的欄位必須是 master 欄位的子集合，且 slave.Len() <= master.Len()。
func MixMerge(c *core.Core, master, slave *Dataset) (*Dataset, error) {
	if master == nil || slave == nil {
		return nil, errs.Kindf(errs.DatasetsNotDisjoint, "mix-merge with nil dataset")
	}
	if slave.Len() > master.Len() {
		return nil, errs.Kindf(errs.DatasetsNotDisjoint, "mix-merge slave has more rows than master: %d > %d", slave.Len(), master.Len())
	}
	if !master.HasAll(slave.cols) {
		return nil, errs.Kindf(errs.DatasetsNotDisjoint, "mix-merge slave columns %v not contained in master %v", slave.cols, master.cols)
	}

	n := master.Len()
	pos := make(map[int]int, slave.Len()) // master 位置 -> slave 列
	for j := 0; j < slave.Len(); j++ {
		for {
			p := c.IntN(n)
			if _, used := pos[p]; !used {
				pos[p] = j
				break
			}
		}
	}

	cols := make([]int, len(slave.cols))
	for k, col := range slave.cols {
		cols[k] = master.index[col]
	}
	out := NewWithCap(n, master.cols...)
	for i := 0; i < n; i++ {
		j, ok := pos[i]
		if !ok {
			out.addOwned(master.weights[i], master.rows[i])
			continue
		}
		nr := slices.Clone(master.rows[i])
		for k, mj := range cols {
			nr[mj] = slave.rows[j][k]
		}
		out.addOwned(slave.weights[j], nr)
	}
	return out, nil
}

// String 回傳簡短描述，供 log 使用。
func (d *Dataset) String() string {
	if d == nil {
		return "<nil dataset>"
	}
	return fmt.Sprintf("dataset[%d rows](%s)", d.Len(), strings.Join(d.cols, ","))
}
