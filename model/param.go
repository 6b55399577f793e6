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

package model

import (
	"math"
	"slices"

	"github.com/zintix-labs/toylab/errs"
)

// Param 是模型的實數參數（產量、係數、形狀參數）。
// Min == Max 時視為沒有範圍限制。
type Param struct {
	Name     string
	Value    float64
	Min      float64
	Max      float64
	Constant bool
}

func NewParam(name string, value, min, max float64) *Param {
	return &Param{Name: name, Value: value, Min: min, Max: max}
}

// NewConst 建立常數參數。
func NewConst(name string, value float64) *Param {
	return &Param{Name: name, Value: value, Min: value, Max: value, Constant: true}
}

// Bounded 判斷參數是否有範圍。
func (p *Param) Bounded() bool {
	return p.Max > p.Min
}

// InRange 判斷 v 是否落在參數範圍內（沒有範圍時恆為 true）。
func (p *Param) InRange(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return !p.Bounded() || (v >= p.Min && v <= p.Max)
}

// Set 設定參數值；超出範圍回傳 InvalidConfig 且不修改。
func (p *Param) Set(v float64) error {
	if !p.InRange(v) {
		return errs.Kindf(errs.InvalidConfig, "param %q: value %v out of range [%v,%v]", p.Name, v, p.Min, p.Max)
	}
	p.Value = v
	return nil
}

// Walk 以前序走訪模型樹。fn 回傳 false 時不再深入該節點的子節點。
func Walk(m Model, fn func(Model) bool) {
	if m == nil || !fn(m) {
		return
	}
	switch n := m.(type) {
	case *Extended:
		Walk(n.Child, fn)
	case *Additive:
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case *Product:
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case *Simultaneous:
		for _, label := range n.Index.States {
			if c, ok := n.Children[label]; ok {
				Walk(c, fn)
			}
		}
	}
}

// Params 收集模型樹上所有參數（依名稱去重，保留第一次出現）。
func Params(m Model) []*Param {
	var out []*Param
	add := func(ps ...*Param) {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if slices.ContainsFunc(out, func(q *Param) bool { return q.Name == p.Name }) {
				continue
			}
			out = append(out, p)
		}
	}
	Walk(m, func(n Model) bool {
		switch v := n.(type) {
		case *Primitive:
			if h, ok := v.Gen.(ParamHolder); ok {
				add(h.Params()...)
			}
		case *Extended:
			add(v.Yield)
		case *Additive:
			add(v.Coefs...)
		}
		return true
	})
	return out
}

// Find 依名稱在模型樹中找節點。
func Find(m Model, name string) (Model, bool) {
	var found Model
	Walk(m, func(n Model) bool {
		if found != nil {
			return false
		}
		if n.Name() == name {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}
