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

package demo_models

import (
	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/pdf"
)

func init() {
	register("by_channel", buildByChannel)
}

// by_channel：依 channel 類別分開的同時性模型，每個通道自帶產量與解析度。
func buildByChannel() (*model.Workspace, error) {
	channel := data.NewCategory("channel", "ee", "mumu")
	mu := model.NewParam("mu", 125, massLo, massHi)
	children := map[string]model.Model{
		"ee": model.NewExtended("ee_ext",
			model.NewPrimitive("ee", pdf.NewGauss("mass", mu, model.NewParam("sigma_ee", 2.5, 0.1, 10), nil)),
			model.NewParam("n_ee", 120, 0, 1e6)),
		"mumu": model.NewExtended("mumu_ext",
			model.NewPrimitive("mumu", pdf.NewGauss("mass", mu, model.NewParam("sigma_mumu", 1.5, 0.1, 10), nil)),
			model.NewParam("n_mumu", 80, 0, 1e6)),
	}
	sim, err := model.NewSimultaneous("by_channel", channel, children)
	if err != nil {
		return nil, err
	}
	return &model.Workspace{Model: sim, Observables: data.NewSet(mass(), data.NewCatVar(channel))}, nil
}
