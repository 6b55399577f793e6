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
	"math"
	"sort"

	"golang.org/x/text/message"
)

// pullEdges 為 pull 分箱的上界（左閉右開），最後一箱收 +Inf。
var pullEdges = []float64{-3, -2, -1, 0, 1, 2, 3, math.Inf(1)}

// PullHisto 以固定標準差為界統計 (n-expected)/sqrt(expected)。
type PullHisto struct {
	Labels []string `json:"Labels" yaml:"labels"`
	Counts []int    `json:"Counts" yaml:"counts"`
}

func NewPullHisto() *PullHisto {
	labels := make([]string, len(pullEdges))
	lo := math.Inf(-1)
	for i, hi := range pullEdges {
		labels[i] = fmt.Sprintf("[%s, %s)", edgeStr(lo), edgeStr(hi))
		lo = hi
	}
	return &PullHisto{Labels: labels, Counts: make([]int, len(pullEdges))}
}

func edgeStr(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	return fmt.Sprintf("%+g", v)
}

// Index 回傳 pull 所屬的箱。NaN 與 +Inf 歸入最後一箱。
func (h *PullHisto) Index(pull float64) int {
	if math.IsNaN(pull) {
		return len(pullEdges) - 1
	}
	i := sort.Search(len(pullEdges), func(i int) bool { return pull < pullEdges[i] })
	return min(i, len(pullEdges)-1)
}

func (h *PullHisto) Add(pull float64) {
	h.Counts[h.Index(pull)]++
}

func (h *PullHisto) Total() int {
	t := 0
	for _, c := range h.Counts {
		t += c
	}
	return t
}

func (h *PullHisto) table() string {
	p := message.NewPrinter(lang)
	total := h.Total()
	msg := make(map[string]string, len(h.Labels))
	for i, l := range h.Labels {
		frac := 0.0
		if total > 0 {
			frac = float64(h.Counts[i]) / float64(total) * 100
		}
		msg[l] = p.Sprintf("%d (%.2f%%)", h.Counts[i], frac)
	}
	return fmtTable("Pull distribution", h.Labels, msg)
}
