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

// ============================================================
// ** 註冊 **
// ============================================================

func init() {
	register("sig_bkg", buildSigBkg)
	register("sig_bkg_ext", buildSigBkgExt)
	register("mass_time", buildMassTime)
}

// sig_bkg：Gauss 訊號 + 指數背景，以訊號比例 fsig 加總。觀測量另含 tag 類別供離散抽樣。
func buildSigBkg() (*model.Workspace, error) {
	sig := model.NewPrimitive("sig", pdf.NewGauss("mass",
		model.NewParam("mu", 125, massLo, massHi),
		model.NewParam("sigma", 2, 0.1, 10), nil))
	bkg := model.NewPrimitive("bkg", pdf.NewExponential("mass",
		model.NewParam("tau", 30, 1, 200), nil))
	sum, err := model.NewAdditive("sig_bkg", []model.Model{sig, bkg},
		[]*model.Param{model.NewParam("fsig", 0.2, 0, 1)})
	if err != nil {
		return nil, err
	}
	return &model.Workspace{Model: sum, Observables: data.NewSet(mass(), tag())}, nil
}

// sig_bkg_ext：自帶產量的加總（nsig、nbkg），產量未設定時期望事件數為兩者之和。
func buildSigBkgExt() (*model.Workspace, error) {
	sig := model.NewExtended("sig_ext",
		model.NewPrimitive("sig", pdf.NewGauss("mass",
			model.NewParam("mu", 125, massLo, massHi),
			model.NewParam("sigma", 2, 0.1, 10), nil)),
		model.NewParam("nsig", 50, 0, 1e6))
	bkg := model.NewExtended("bkg_ext",
		model.NewPrimitive("bkg", pdf.NewExponential("mass",
			model.NewParam("tau", 30, 1, 200), nil)),
		model.NewParam("nbkg", 450, 0, 1e6))
	sum, err := model.NewAdditive("sig_bkg_ext", []model.Model{sig, bkg}, nil)
	if err != nil {
		return nil, err
	}
	return &model.Workspace{Model: sum, Observables: data.NewSet(mass())}, nil
}

// mass_time：質量與衰變時間的乘積模型。
func buildMassTime() (*model.Workspace, error) {
	m := model.NewPrimitive("mass_pdf", pdf.NewGauss("mass",
		model.NewParam("mu", 125, massLo, massHi),
		model.NewParam("sigma", 3, 0.1, 10), nil))
	t := model.NewPrimitive("time_pdf", pdf.NewExponential("time",
		model.NewParam("lifetime", 1.5, 0.1, 10), nil))
	prod := model.NewProduct("mass_time", m, t)
	obs := data.NewSet(mass(), data.NewReal("time", timeLo, timeHi))
	return &model.Workspace{Model: prod, Observables: obs}, nil
}
