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
	"fmt"
	"sort"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
)

// Workspace 是一次生成所需的模型樹與其完整觀測量集合。
// 參數會在生成前被改寫（約束抽樣、參數檔），因此每次生成都應由 Builder 建出新的 Workspace。
type Workspace struct {
	Model       Model
	Observables *data.Set
}

// Builder 建出一份新的 Workspace。
type Builder func() (*Workspace, error)

// Registry 依名稱保存模型 builders。
type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder, 16)}
}

func (r *Registry) Register(name string, b Builder) error {
	if name == "" || b == nil {
		return errs.NewFatal("model name and builder required")
	}
	if _, ok := r.builders[name]; ok {
		return errs.NewFatal(fmt.Sprintf("duplicate model builder: %s", name))
	}
	r.builders[name] = b
	return nil
}

func (r *Registry) Build(name string) (*Workspace, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, errs.Kindf(errs.InvalidConfig, "model is not registered: %s", name)
	}
	return b()
}

func (r *Registry) IsExist(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names 回傳排序後的模型名稱。
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MergeRegistry 合併多個 registry；重複名稱一律視為錯誤，避免「後者覆蓋」的不確定行為。
func MergeRegistry(regs ...*Registry) (*Registry, error) {
	out := NewRegistry()
	origin := make(map[string]int, 16)
	for i, r := range regs {
		if r == nil {
			continue
		}
		for name, b := range r.builders {
			if _, ok := out.builders[name]; ok {
				return nil, errs.NewFatal(fmt.Sprintf("duplicate model %s (registry #%d and #%d)", name, origin[name], i))
			}
			out.builders[name] = b
			origin[name] = i
		}
	}
	return out, nil
}
