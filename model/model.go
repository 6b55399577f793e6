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

// Package model 定義生成引擎消費的模型樹。
//
// 模型是封閉的和型別（sum type）：Primitive / Extended / Additive / Product / Simultaneous，
// 以未匯出的 isModel 方法封閉，分派器對 Kind 做窮舉 switch，不做執行期型別名稱比對。
//
// 密度的計算與取樣完全屬於 Primitive 內的 Generator（外部協作者）；本包只描述組合結構。
package model

import (
	"slices"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/sdk/core"
)

// Kind 是模型節點的組合種類。
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindExtended
	KindAdditive
	KindProduct
	KindSimultaneous
)

var kindName = map[Kind]string{
	KindPrimitive:    "primitive",
	KindExtended:     "extended",
	KindAdditive:     "additive",
	KindProduct:      "product",
	KindSimultaneous: "simultaneous",
}

func (k Kind) String() string {
	return kindName[k]
}

// Model 是模型樹上的節點。
type Model interface {
	Name() string
	Kind() Kind
	// Depends 回傳此節點（含子節點）依賴的觀測量名稱。
	Depends() []string
	// ExpectedEvents 回傳在 obs 上的期望事件數；外部沒有給產量時使用。
	ExpectedEvents(obs *data.Set) float64
	isModel()
}

// Decomposable 判斷節點是否可再分解。
func Decomposable(m Model) bool {
	return m.Kind() != KindPrimitive
}

// Request 是對 Primitive 生成器的一次取樣請求。
//
//   - Obs 為已扣除 proto 欄位的觀測量，生成器必須為每一個觀測量填值
//     （不依賴的連續變數在範圍內均勻取值，不依賴的類別均勻取狀態）。
//   - Proto 非 nil 時，其第 i 列為輸出第 i 列的條件資料（唯讀）；proto 欄位由引擎負責併回。
//   - States 為外層同時性節點本次迭代的類別狀態，由呼叫端以值傳入，生成器不得假設共用類別被修改。
type Request struct {
	Obs      *data.Set
	N        int
	Extended bool
	Proto    *data.Dataset
	States   []data.CategoryState
}

// Generator 是 Primitive 的取樣協作者。
//
// Extended 為 true 時，生成器自行把 N 做 Poisson 變動。
type Generator interface {
	Generate(c *core.Core, req Request) (*data.Dataset, error)
	ExpectedEvents(obs *data.Set) float64
	Depends() []string
}

// ParamHolder 由持有參數的生成器實作，讓參數走訪能涵蓋葉節點。
type ParamHolder interface {
	Params() []*Param
}

// ============================================================
// ** Primitive **
// ============================================================

// Primitive 是不可再分解的葉節點。
type Primitive struct {
	name string
	Gen  Generator
}

func NewPrimitive(name string, gen Generator) *Primitive {
	return &Primitive{name: name, Gen: gen}
}

func (p *Primitive) Name() string      { return p.name }
func (p *Primitive) Kind() Kind        { return KindPrimitive }
func (p *Primitive) Depends() []string { return p.Gen.Depends() }
func (p *Primitive) isModel()          {}

func (p *Primitive) ExpectedEvents(obs *data.Set) float64 {
	return p.Gen.ExpectedEvents(obs)
}

// ============================================================
// ** Extended **
// ============================================================

// Extended 以產量參數包裝單一子模型。
type Extended struct {
	name  string
	Child Model
	Yield *Param
}

func NewExtended(name string, child Model, yield *Param) *Extended {
	return &Extended{name: name, Child: child, Yield: yield}
}

func (e *Extended) Name() string      { return e.name }
func (e *Extended) Kind() Kind        { return KindExtended }
func (e *Extended) Depends() []string { return e.Child.Depends() }
func (e *Extended) isModel()          {}

func (e *Extended) ExpectedEvents(*data.Set) float64 {
	return e.Yield.Value
}

// ============================================================
// ** Product **
// ============================================================

// Product 是定義在互斥觀測量子集合上的因式分解乘積。
type Product struct {
	name     string
	Children []Model
}

func NewProduct(name string, children ...Model) *Product {
	return &Product{name: name, Children: slices.Clone(children)}
}

func (p *Product) Name() string { return p.name }
func (p *Product) Kind() Kind   { return KindProduct }
func (p *Product) isModel()     {}

func (p *Product) Depends() []string {
	return unionDepends(p.Children)
}

// ExpectedEvents 取第一個具有非零期望值的因子（通常是唯一的 extended 項）。
func (p *Product) ExpectedEvents(obs *data.Set) float64 {
	for _, c := range p.Children {
		if n := c.ExpectedEvents(obs); n != 0 {
			return n
		}
	}
	return 0
}

func unionDepends(children []Model) []string {
	var out []string
	for _, c := range children {
		for _, d := range c.Depends() {
			if !slices.Contains(out, d) {
				out = append(out, d)
			}
		}
	}
	return out
}
