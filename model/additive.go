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
	"slices"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
)

// AddMode 描述加法節點的份額來源。
type AddMode uint8

const (
	// SelfExtended 沒有係數：每個子節點的份額為 child.ExpectedEvents / node.ExpectedEvents。
	SelfExtended AddMode = iota
	// Fractions 係數比子節點少一個：係數為份額，最後一個份額為 1 − Σ。
	Fractions
	// Literal 係數與子節點一樣多：係數本身就是各子節點的產量。
	Literal
)

// Additive 是多個子模型的加總。
type Additive struct {
	name     string
	Children []Model
	Coefs    []*Param
}

// NewAdditive 建立加法節點；係數個數必須是 0、len(children)-1 或 len(children)。
func NewAdditive(name string, children []Model, coefs []*Param) (*Additive, error) {
	n := len(children)
	if n == 0 {
		return nil, errs.Kindf(errs.InvalidConfig, "additive %q has no children", name)
	}
	if k := len(coefs); k != 0 && k != n-1 && k != n {
		return nil, errs.Kindf(errs.InvalidConfig, "additive %q: %d coefficients for %d children", name, k, n)
	}
	return &Additive{name: name, Children: slices.Clone(children), Coefs: slices.Clone(coefs)}, nil
}

// MustAdditive 與 NewAdditive 相同，錯誤時 panic；只用於靜態組裝的模型（demo、測試）。
func MustAdditive(name string, children []Model, coefs []*Param) *Additive {
	a, err := NewAdditive(name, children, coefs)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Additive) Name() string { return a.name }
func (a *Additive) Kind() Kind   { return KindAdditive }
func (a *Additive) isModel()     {}

func (a *Additive) Depends() []string {
	return unionDepends(a.Children)
}

func (a *Additive) Mode() AddMode {
	switch len(a.Coefs) {
	case 0:
		return SelfExtended
	case len(a.Children):
		return Literal
	default:
		return Fractions
	}
}

// ExpectedEvents：
//   - SelfExtended：子節點期望值總和。
//   - Literal：係數總和。
//   - Fractions：份額模型不可延伸，回傳 0。
func (a *Additive) ExpectedEvents(obs *data.Set) float64 {
	switch a.Mode() {
	case SelfExtended:
		sum := 0.0
		for _, c := range a.Children {
			sum += c.ExpectedEvents(obs)
		}
		return sum
	case Literal:
		sum := 0.0
		for _, p := range a.Coefs {
			sum += p.Value
		}
		return sum
	default:
		return 0
	}
}
