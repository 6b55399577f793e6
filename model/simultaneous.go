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
	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
)

// Simultaneous 依索引類別的每個狀態各自對應一個子模型。
// Children 以狀態標籤為鍵；沒有對應子模型的狀態在生成時略過。
type Simultaneous struct {
	name     string
	Index    *data.Category
	Children map[string]Model
}

// NewSimultaneous 建立同時性節點；每個鍵都必須是 index 的合法狀態。
func NewSimultaneous(name string, index *data.Category, children map[string]Model) (*Simultaneous, error) {
	if index == nil || len(index.States) == 0 {
		return nil, errs.Kindf(errs.InvalidConfig, "simultaneous %q needs an index category with states", name)
	}
	cp := make(map[string]Model, len(children))
	for label, m := range children {
		if _, ok := index.Lookup(label); !ok {
			return nil, errs.Kindf(errs.InvalidConfig, "simultaneous %q: %q is not a state of %q", name, label, index.Name)
		}
		cp[label] = m
	}
	return &Simultaneous{name: name, Index: index, Children: cp}, nil
}

// MustSimultaneous 錯誤時 panic；只用於靜態組裝的模型。
func MustSimultaneous(name string, index *data.Category, children map[string]Model) *Simultaneous {
	s, err := NewSimultaneous(name, index, children)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Simultaneous) Name() string { return s.name }
func (s *Simultaneous) Kind() Kind   { return KindSimultaneous }
func (s *Simultaneous) isModel()     {}

// IndexColumns 回傳索引類別本身與其組成類別的欄位名稱。
func (s *Simultaneous) IndexColumns() []string {
	return append([]string{s.Index.Name}, s.Index.ComponentNames()...)
}

// Child 回傳某狀態的子模型。
func (s *Simultaneous) Child(state data.CategoryState) (Model, bool) {
	m, ok := s.Children[state.Label]
	return m, ok && m != nil
}

func (s *Simultaneous) Depends() []string {
	out := s.IndexColumns()
	for _, label := range s.Index.States {
		if m, ok := s.Children[label]; ok && m != nil {
			for _, d := range m.Depends() {
				if !contains(out, d) {
					out = append(out, d)
				}
			}
		}
	}
	return out
}

// ExpectedEvents 為各狀態子模型期望值總和。
func (s *Simultaneous) ExpectedEvents(obs *data.Set) float64 {
	sum := 0.0
	for _, m := range s.Children {
		if m != nil {
			sum += m.ExpectedEvents(obs)
		}
	}
	return sum
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
