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

package toylab

import (
	"log/slog"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/engine"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/spec"
)

// sectionProvider 以設定內的區段產生 proto 條件資料：
// 每個區段是另一個已註冊模型，在自己的觀測量上以固定列數生成，各區段結果按欄位合併。
type sectionProvider struct {
	reg     *model.Registry
	setting *spec.ToySetting
	core    *core.Core
	log     *slog.Logger
}

func newSectionProvider(reg *model.Registry, ts *spec.ToySetting, c *core.Core, log *slog.Logger) engine.ProtoProvider {
	if len(ts.ProtoSections) == 0 {
		return nil
	}
	return &sectionProvider{reg: reg, setting: ts, core: c, log: log}
}

func (p *sectionProvider) Sections(m string) []string {
	return p.setting.ProtoSections[m]
}

func (p *sectionProvider) Proto(sections []string, n int) (*data.Dataset, error) {
	// 區段模型本身不再取 proto，避免區段互相引用時無限遞迴
	eng := engine.New(p.core, p.log, nil)
	parts := make([]*data.Dataset, 0, len(sections))
	defer func() {
		for _, d := range parts {
			d.Release()
		}
	}()
	for _, name := range sections {
		sec, ok := p.setting.Sections[name]
		if !ok {
			return nil, errs.Kindf(errs.InvalidConfig, "unknown proto section %q", name)
		}
		ws, err := p.reg.Build(sec.Model)
		if err != nil {
			return nil, err
		}
		obs, err := observables(ws.Observables, sec.Observables)
		if err != nil {
			return nil, errs.Wrap(err, "proto section "+name)
		}
		ds, err := eng.Generate(ws.Model, obs, float64(n), false, nil)
		if err != nil {
			return nil, errs.Wrap(err, "proto section "+name)
		}
		parts = append(parts, ds)
	}
	return data.MergeVector(parts)
}
