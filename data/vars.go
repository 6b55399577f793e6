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
	"slices"
	"strings"
)

// Var 是一個觀測量：連續變數（Cat == nil，取值於 [Min,Max)）或離散類別（Cat != nil，取值為狀態索引）。
type Var struct {
	Name string
	Min  float64
	Max  float64
	Cat  *Category
}

// NewReal 建立連續觀測量。
func NewReal(name string, min, max float64) *Var {
	return &Var{Name: name, Min: min, Max: max}
}

// NewCatVar 建立以類別為值域的觀測量，變數名稱與類別名稱相同。
func NewCatVar(cat *Category) *Var {
	return &Var{Name: cat.Name, Min: 0, Max: float64(len(cat.States)), Cat: cat}
}

func (v *Var) IsCategory() bool {
	return v != nil && v.Cat != nil
}

// Category 是有序的離散狀態集合。
// Components 非空時代表複合類別（super category）：狀態為各組成類別狀態的笛卡兒積，
// 以第一個組成類別變化最慢的順序排列。
type Category struct {
	Name       string
	States     []string
	Components []*Category
}

// NewCategory 建立一般類別。
func NewCategory(name string, states ...string) *Category {
	return &Category{Name: name, States: slices.Clone(states)}
}

// NewSuperCategory 由多個類別組成複合類別，狀態標籤形如 "{a;x}"。
func NewSuperCategory(name string, comps ...*Category) *Category {
	labels := []string{""}
	for _, c := range comps {
		next := make([]string, 0, len(labels)*len(c.States))
		for _, prefix := range labels {
			for _, s := range c.States {
				if prefix == "" {
					next = append(next, s)
				} else {
					next = append(next, prefix+";"+s)
				}
			}
		}
		labels = next
	}
	for i := range labels {
		labels[i] = "{" + labels[i] + "}"
	}
	return &Category{Name: name, States: labels, Components: slices.Clone(comps)}
}

// CategoryState 是某類別在一次迭代中的不可變狀態值。
type CategoryState struct {
	Category string
	Label    string
	Index    int
}

// State 回傳第 i 個狀態。
func (c *Category) State(i int) CategoryState {
	return CategoryState{Category: c.Name, Label: c.States[i], Index: i}
}

// Lookup 依標籤找狀態索引。
func (c *Category) Lookup(label string) (int, bool) {
	i := slices.Index(c.States, label)
	return i, i >= 0
}

// Decompose 把複合類別的狀態索引拆回各組成類別的狀態。一般類別回傳 nil。
func (c *Category) Decompose(i int) []CategoryState {
	if len(c.Components) == 0 {
		return nil
	}
	out := make([]CategoryState, len(c.Components))
	rest := i
	for k := len(c.Components) - 1; k >= 0; k-- {
		comp := c.Components[k]
		n := len(comp.States)
		out[k] = comp.State(rest % n)
		rest /= n
	}
	return out
}

// ComponentNames 回傳複合類別的組成類別名稱。
func (c *Category) ComponentNames() []string {
	names := make([]string, len(c.Components))
	for i, comp := range c.Components {
		names[i] = comp.Name
	}
	return names
}

// Set 是有序的觀測量集合，在整個遞迴分解過程中共用；只會因 proto 已提供欄位而縮小。
// Set 的方法一律回傳新 Set，不修改原本的集合。
type Set struct {
	vars []*Var
}

func NewSet(vars ...*Var) *Set {
	s := &Set{vars: make([]*Var, 0, len(vars))}
	for _, v := range vars {
		if v == nil || s.Has(v.Name) {
			continue
		}
		s.vars = append(s.vars, v)
	}
	return s
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vars)
}

func (s *Set) Vars() []*Var {
	if s == nil {
		return nil
	}
	return slices.Clone(s.vars)
}

func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func (s *Set) Get(name string) (*Var, bool) {
	if s == nil {
		return nil, false
	}
	for _, v := range s.vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Without 移除指定名稱後回傳新集合。
func (s *Set) Without(names ...string) *Set {
	out := &Set{}
	if s == nil {
		return out
	}
	for _, v := range s.vars {
		if !slices.Contains(names, v.Name) {
			out.vars = append(out.vars, v)
		}
	}
	return out
}

// Only 保留名稱出現在 names 內的觀測量（依原集合順序）。
func (s *Set) Only(names []string) *Set {
	out := &Set{}
	if s == nil {
		return out
	}
	for _, v := range s.vars {
		if slices.Contains(names, v.Name) {
			out.vars = append(out.vars, v)
		}
	}
	return out
}

func (s *Set) String() string {
	return "(" + strings.Join(s.Names(), ",") + ")"
}
