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
	register("mass_errors", buildMassErrors)
	register("smeared_mass", buildSmearedMass)
}

// mass_errors：逐事件質量誤差的分箱分佈，作為 smeared_mass 的 proto 區段。
func buildMassErrors() (*model.Workspace, error) {
	h, err := pdf.NewHistogram("mass_err",
		[]float64{0.5, 1.0, 1.5, 2.0, 3.0},
		[]float64{10, 40, 30, 20}, nil)
	if err != nil {
		return nil, err
	}
	return &model.Workspace{
		Model:       model.NewPrimitive("mass_errors", h),
		Observables: data.NewSet(data.NewReal("mass_err", errLo, errHi)),
	}, nil
}

// smeared_mass：mass ~ N(mu, scale·mass_err)，mass_err 由 proto 提供。
func buildSmearedMass() (*model.Workspace, error) {
	r := pdf.NewResolution("mass", "mass_err",
		model.NewParam("mu", 125, massLo, massHi),
		model.NewParam("scale", 1, 0.1, 5), nil)
	obs := data.NewSet(mass(), data.NewReal("mass_err", errLo, errHi))
	return &model.Workspace{Model: model.NewPrimitive("smeared_mass", r), Observables: obs}, nil
}
