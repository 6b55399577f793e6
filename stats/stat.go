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

// Package stats 整理生成結果的統計摘要：單一資料集的欄位統計，以及多個 toy 的產量分佈。
package stats

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/toylab/data"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"lo"`
	Hi float64 `json:"Hi" yaml:"hi"`
}

// DatasetReport 單一資料集的摘要
type DatasetReport struct {
	Name     string       `json:"Name"     yaml:"name"`
	Rows     int          `json:"Rows"     yaml:"rows"`
	SumW     float64      `json:"SumW"     yaml:"sum_w"`
	Expected float64      `json:"Expected" yaml:"expected"`
	CountCI  CI           `json:"CountCI"  yaml:"count_ci"` // 以觀測列數估計 Poisson 均值的 95% 區間
	Pull     float64      `json:"Pull"     yaml:"pull"`     // (rows - expected) / sqrt(expected)
	Columns  []ColumnStat `json:"Columns"  yaml:"columns"`
}

// ColumnStat 加權欄位統計
type ColumnStat struct {
	Name   string  `json:"Name"   yaml:"name"`
	Mean   float64 `json:"Mean"   yaml:"mean"`
	Std    float64 `json:"Std"    yaml:"std"`
	Min    float64 `json:"Min"    yaml:"min"`
	Max    float64 `json:"Max"    yaml:"max"`
	Median float64 `json:"Median" yaml:"median"`
}

// Describe 計算資料集摘要。expected <= 0 時不計算 Pull。
func Describe(name string, ds *data.Dataset, expected float64) *DatasetReport {
	r := &DatasetReport{Name: name, Expected: expected}
	if ds == nil {
		return r
	}
	r.Rows = ds.Len()
	r.SumW = ds.SumWeights()
	r.CountCI = PoissonCI(r.Rows, 0.95)
	if expected > 0 {
		r.Pull = (float64(r.Rows) - expected) / math.Sqrt(expected)
	}

	w := make([]float64, ds.Len())
	for i := range w {
		w[i] = ds.Weight(i)
	}
	for _, col := range ds.Columns() {
		xs, _ := ds.Column(col)
		cs := ColumnStat{Name: col}
		if len(xs) > 0 {
			cs.Mean, cs.Std = stat.MeanStdDev(xs, w)
			cs.Min = floats.Min(xs)
			cs.Max = floats.Max(xs)
			cs.Median = median(xs, w)
		}
		if len(xs) < 2 {
			cs.Std = 0
		}
		r.Columns = append(r.Columns, cs)
	}
	return r
}

// PoissonCI 回傳觀測到 k 個事件時 Poisson 均值的 Garwood 精確信賴區間。
func PoissonCI(k int, confidence float64) CI {
	alpha := 1 - confidence
	ci := CI{}
	if k > 0 {
		ci.Lo = distuv.ChiSquared{K: float64(2 * k)}.Quantile(alpha/2) / 2
	}
	ci.Hi = distuv.ChiSquared{K: float64(2*k + 2)}.Quantile(1-alpha/2) / 2
	return ci
}

func median(xs, w []float64) float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	sx := make([]float64, len(xs))
	sw := make([]float64, len(xs))
	for k, i := range idx {
		sx[k] = xs[i]
		sw[k] = w[i]
	}
	return stat.Quantile(0.5, stat.Empirical, sx, sw)
}

func (r *DatasetReport) WriteWith(w io.Writer, rep Render) error {
	return rep.Write(w, r)
}

// StdOut 以表格印出摘要。
func (r *DatasetReport) StdOut(used time.Duration) {
	formatDuration(used, r.Rows, "events")
	p := message.NewPrinter(lang)
	keys := []string{"Name", "Rows", "Sum of weights", "Expected", "Count 95% CI", "Pull"}
	msg := map[string]string{
		"Name":           r.Name,
		"Rows":           p.Sprintf("%d", r.Rows),
		"Sum of weights": p.Sprintf("%.2f", r.SumW),
		"Expected":       p.Sprintf("%.2f", r.Expected),
		"Count 95% CI":   p.Sprintf("[%.2f, %.2f]", r.CountCI.Lo, r.CountCI.Hi),
		"Pull":           p.Sprintf("%.3f", r.Pull),
	}
	for _, c := range r.Columns {
		k := "col " + c.Name
		keys = append(keys, k)
		msg[k] = p.Sprintf("mean %.4g  std %.4g  [%.4g, %.4g]", c.Mean, c.Std, c.Min, c.Max)
	}
	fmt.Println(fmtTable(r.Name, keys, msg))
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, n int, unit string) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	rate := int(float64(n) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nrate: %d %s/sec\n", sec, rate, unit)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\nrate: %d %s/sec\n", m, s, rate, unit)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nrate: %d %s/sec\n", h, m, s, rate, unit)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title) / 2
	maxValLen := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(msg[k]); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2
	if inner := maxKeyLen + maxValLen + 1; inner < runewidth.StringWidth(title) {
		maxValLen += runewidth.StringWidth(title) - inner
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func sortedCopy(xs []float64) []float64 {
	cp := slices.Clone(xs)
	sort.Float64s(cp)
	return cp
}
