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

// Package engine 是 toy 資料集生成的分解派送器。
//
// Engine 檢查模型節點的種類（primitive / extended / additive / product / simultaneous），
// 沿著模型樹遞迴，把產量、extended 旗標與 proto 資料往下傳，最後以資料集合併工具組裝結果。
//
// 執行是單執行緒、同步、純遞迴的；唯一共用的狀態是 Engine 持有的 *core.Core 亂數流，
// Engine 本身不做任何 seeding，重現性取決於呼叫端如何建立 Core。
package engine

import (
	"log/slog"
	"slices"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/yield"
)

// ProtoProvider 為子模型提供預先生成的條件資料（proto 樣本）。
//
//   - Sections 回傳模型名稱登記的 proto 區段；沒有登記時回傳空。
//   - Proto 依區段生成 n 列資料；呼叫端擁有回傳的資料集並負責釋放。
type ProtoProvider interface {
	Sections(model string) []string
	Proto(sections []string, n int) (*data.Dataset, error)
}

// Engine 是分解派送器。零值不可用，請用 New。
type Engine struct {
	core  *core.Core
	log   *slog.Logger
	proto ProtoProvider
}

// New 建立 Engine。log 為 nil 時丟棄所有紀錄；proto 可為 nil。
func New(c *core.Core, log *slog.Logger, proto ProtoProvider) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{core: c, log: log, proto: proto}
}

// Core 回傳引擎使用的亂數流。
func (e *Engine) Core() *core.Core {
	return e.core
}

// Generate 在 obs 上為模型 m 生成資料集。
//
// expected <= 0 代表沒有外部產量，由各節點自己的期望事件數決定。
// extended 為 true 時，事件數以 Poisson 變動；proto 是往下傳的條件資料，Generate 不會釋放它們。
func (e *Engine) Generate(m model.Model, obs *data.Set, expected float64, extended bool, proto []*data.Dataset) (*data.Dataset, error) {
	if !(expected > 0) {
		expected = unset
	}
	return e.generate(m, obs, expected, extended, proto, nil)
}

// unset 標記遞迴內「沒有外部產量」；0 是明確的零產量（份額為 0 或 Poisson 抽到 0），必須生成空資料集。
const unset = -1.0

func yieldSet(y float64) bool {
	return y >= 0
}

// generate 是遞迴本體；states 是外層 simultaneous 節點已選定的類別狀態。
func (e *Engine) generate(m model.Model, obs *data.Set, expected float64, extended bool, proto []*data.Dataset, states []data.CategoryState) (*data.Dataset, error) {
	if m == nil {
		return nil, errs.Kindf(errs.ModelNotSet, "no model to generate on %s", obs)
	}

	own, err := e.protoFor(m, obs, expected)
	if err != nil {
		return nil, err
	}
	if own != nil {
		defer own.Release()
		proto = append(slices.Clone(proto), own)
	}

	e.log.Debug("generate",
		slog.String("model", m.Name()),
		slog.String("kind", m.Kind().String()),
		slog.Float64("yield", expected),
		slog.Bool("extended", extended),
		slog.Int("proto", len(proto)),
	)

	switch node := m.(type) {
	case *model.Extended:
		y := expected
		if !yieldSet(y) {
			y = node.Yield.Value
		}
		return e.generate(node.Child, obs, y, extended, proto, states)
	case *model.Additive:
		return e.generateAdded(node, obs, expected, extended, proto, states)
	case *model.Product:
		return e.generateProduct(node, obs, expected, extended, proto, states)
	case *model.Simultaneous:
		return e.generateSimultaneous(node, obs, expected, extended, proto, states)
	case *model.Primitive:
		return e.generatePrimitive(node, obs, expected, extended, proto, states)
	default:
		return nil, errs.Fatalf("model %q: unsupported kind %s", m.Name(), m.Kind())
	}
}

// protoFor 若模型登記了 proto 區段，生成一份只屬於這一層遞迴的 proto 樣本。
// 樣本大小為 yield.ProtoSize(產量)，產量未設定時用模型自己的期望事件數。
func (e *Engine) protoFor(m model.Model, obs *data.Set, expected float64) (*data.Dataset, error) {
	if e.proto == nil {
		return nil, nil
	}
	sections := e.proto.Sections(m.Name())
	if len(sections) == 0 {
		return nil, nil
	}
	y := expected
	if !yieldSet(y) {
		y = m.ExpectedEvents(obs)
	}
	n := yield.ProtoSize(y)
	ds, err := e.proto.Proto(sections, n)
	if err != nil {
		return nil, errs.Wrap(err, "proto sample for "+m.Name())
	}
	e.log.Info("proto sample generated",
		slog.String("model", m.Name()),
		slog.Any("sections", sections),
		slog.Int("rows", ds.Len()),
	)
	return ds, nil
}
