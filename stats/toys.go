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

package stats

import (
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ToysReport 彙整多個 toy 的產量分佈。
type ToysReport struct {
	Name     string     `json:"Name"     yaml:"name"`
	Toys     int        `json:"Toys"     yaml:"toys"`
	Expected float64    `json:"Expected" yaml:"expected"`
	Poisson  bool       `json:"Poisson"  yaml:"poisson"`
	Mean     float64    `json:"Mean"     yaml:"mean"`
	Std      float64    `json:"Std"      yaml:"std"`
	MeanCI   CI         `json:"MeanCI"   yaml:"mean_ci"`   // 平均產量 95% 區間（常態近似）
	Median   float64    `json:"Median"   yaml:"median"`
	MedianCI CI         `json:"MedianCI" yaml:"median_ci"` // 由次序統計量反推的 95% 區間
	Coverage float64    `json:"Coverage" yaml:"coverage"`  // 每個 toy 的 Poisson 68% 區間涵蓋期望值的比例
	CoverCI  CI         `json:"CoverCI"  yaml:"cover_ci"`  // Clopper-Pearson
	Pulls    *PullHisto `json:"Pulls"    yaml:"pulls"`
}

// Summarize 由每個 toy 的產量建立報表。
func Summarize(name string, expected float64, poisson bool, yields []int) *ToysReport {
	r := &ToysReport{Name: name, Toys: len(yields), Expected: expected, Poisson: poisson, Pulls: NewPullHisto()}
	if len(yields) == 0 {
		return r
	}
	xs := make([]float64, len(yields))
	covered := 0
	for i, y := range yields {
		xs[i] = float64(y)
		ci := PoissonCI(y, 0.6827)
		if expected >= ci.Lo && expected <= ci.Hi {
			covered++
		}
		if expected > 0 {
			r.Pulls.Add((xs[i] - expected) / math.Sqrt(expected))
		}
	}
	r.Mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		r.Std = stat.StdDev(xs, nil)
		half := 1.96 * r.Std / math.Sqrt(float64(len(xs)))
		r.MeanCI = CI{Lo: r.Mean - half, Hi: r.Mean + half}
	} else {
		r.MeanCI = CI{Lo: r.Mean, Hi: r.Mean}
	}
	sorted := sortedCopy(xs)
	r.Median = quantilePoint(sorted, 0.5)
	r.MedianCI = quantileCI(sorted, 0.5, 0.05)
	r.Coverage = float64(covered) / float64(len(yields))
	r.CoverCI = proportionCICP(covered, len(yields), 0.05)
	return r
}

func (r *ToysReport) WriteWith(w io.Writer, rep Render) error {
	return rep.Write(w, r)
}

// StdOut 以表格印出摘要。
func (r *ToysReport) StdOut(used time.Duration) {
	formatDuration(used, r.Toys, "toys")
	p := message.NewPrinter(lang)
	keys := []string{"Name", "Toys", "Expected", "Poisson", "Mean yield", "Mean 95% CI", "Std", "Median 95% CI", "Coverage (68%)"}
	msg := map[string]string{
		"Name":           r.Name,
		"Toys":           p.Sprintf("%d", r.Toys),
		"Expected":       p.Sprintf("%.2f", r.Expected),
		"Poisson":        fmt.Sprint(r.Poisson),
		"Mean yield":     p.Sprintf("%.3f", r.Mean),
		"Mean 95% CI":    p.Sprintf("[%.3f, %.3f]", r.MeanCI.Lo, r.MeanCI.Hi),
		"Std":            p.Sprintf("%.3f", r.Std),
		"Median 95% CI":  p.Sprintf("%.1f [%.1f, %.1f]", r.Median, r.MedianCI.Lo, r.MedianCI.Hi),
		"Coverage (68%)": p.Sprintf("%.2f%% [%.2f%%, %.2f%%]", r.Coverage*100, r.CoverCI.Lo*100, r.CoverCI.Hi*100),
	}
	fmt.Println(fmtTable(r.Name, keys, msg))
	if r.Pulls != nil && r.Pulls.Total() > 0 {
		fmt.Println(r.Pulls.table())
	}
}

// ============================================================
// ** 區間估計 **
// ============================================================

// quantilePoint 以 nearest-rank 取已排序樣本的 q 分位點。
func quantilePoint(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	k := int(math.Ceil(q*float64(n))) - 1
	k = min(max(k, 0), n-1)
	return sorted[k]
}

// quantileCI 以二項分佈的常態近似求 q 分位點的次序統計量區間。
func quantileCI(sorted []float64, q, alpha float64) CI {
	n := len(sorted)
	if n == 0 {
		return CI{}
	}
	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	mu := float64(n) * q
	sd := math.Sqrt(float64(n) * q * (1 - q))
	lo := int(math.Floor(mu-z*sd)) - 1
	hi := int(math.Ceil(mu+z*sd)) - 1
	lo = min(max(lo, 0), n-1)
	hi = min(max(hi, 0), n-1)
	return CI{Lo: sorted[lo], Hi: sorted[hi]}
}

// proportionCICP 回傳 k/n 的 Clopper-Pearson 精確區間。
func proportionCICP(k, n int, alpha float64) CI {
	if n <= 0 {
		return CI{}
	}
	ci := CI{Lo: 0, Hi: 1}
	if k > 0 {
		ci.Lo = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	if k < n {
		ci.Hi = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return ci
}
