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

package spec

import (
	"math"
	"strings"

	"github.com/zintix-labs/toylab/errs"
)

// 輸出格式
const (
	FormatCSV    = "csv"
	FormatCSVZst = "csv.zst"
	FormatSQLite = "sqlite"
)

// ToySetting 是一次 toy 生成的完整設定。
type ToySetting struct {
	Name          string                    `yaml:"name"           json:"name"`
	Model         string                    `yaml:"model"          json:"model"`       // 模型註冊名；空字串代表只生成離散變數
	Observables   []string                  `yaml:"observables"    json:"observables"` // 工作區觀測量的子集合；空代表全部
	Yield         float64                   `yaml:"yield"          json:"yield"`       // 0 代表用模型自己的期望事件數
	Poisson       bool                      `yaml:"poisson"        json:"poisson"`     // true: 事件數 Poisson 變動；false: 固定
	Seed          int64                     `yaml:"seed"           json:"seed"`
	Output        OutputSetting             `yaml:"output"         json:"output"`
	Params        ParamsSetting             `yaml:"params"         json:"params"`
	ParamValues   map[string]float64        `yaml:"param_values"   json:"param_values"`
	Constraints   []ConstraintSetting       `yaml:"constraints"    json:"constraints"`
	ProtoSections map[string][]string       `yaml:"proto_sections" json:"proto_sections"` // 模型名 -> proto 區段名
	Sections      map[string]SectionSetting `yaml:"sections"       json:"sections"`
	Discrete      []DiscreteSetting         `yaml:"discrete"       json:"discrete"`
}

// OutputSetting 指定資料集寫到哪個檔案、用哪個鍵。File 為空代表不寫出。
type OutputSetting struct {
	File   string `yaml:"file"   json:"file"`
	Key    string `yaml:"key"    json:"key"`
	Format string `yaml:"format" json:"format"`
}

// ParamsSetting 生成前讀入 / 生成後保存參數值的檔案路徑。
type ParamsSetting struct {
	Save string `yaml:"save" json:"save"`
	Read string `yaml:"read" json:"read"`
}

// ConstraintSetting 外部高斯約束：生成前以 N(Mean, Sigma) 抽出參數值。
type ConstraintSetting struct {
	Param string  `yaml:"param" json:"param"`
	Mean  float64 `yaml:"mean"  json:"mean"`
	Sigma float64 `yaml:"sigma" json:"sigma"`
}

// SectionSetting 是一個 proto 區段：以另一個註冊模型生成條件資料。
type SectionSetting struct {
	Model       string   `yaml:"model"       json:"model"`
	Observables []string `yaml:"observables" json:"observables"`
}

// DiscreteSetting 單一離散變數的累積機率表。
type DiscreteSetting struct {
	Var     string          `yaml:"var"     json:"var"`
	Entries []DiscreteEntry `yaml:"entries" json:"entries"`
}

// DiscreteEntry 以 Value 或 Label（類別狀態）指定值；兩者擇一。
type DiscreteEntry struct {
	Value float64 `yaml:"value" json:"value"`
	Label string  `yaml:"label" json:"label"`
	Cum   float64 `yaml:"cum"   json:"cum"`
}

func (ts *ToySetting) init() error {
	ts.Name = strings.TrimSpace(ts.Name)
	ts.Output.Format = strings.ToLower(strings.TrimSpace(ts.Output.Format))
	if ts.Output.Format == "" {
		ts.Output.Format = FormatCSV
		if strings.HasSuffix(strings.ToLower(ts.Output.File), ".zst") {
			ts.Output.Format = FormatCSVZst
		}
	}
	if ts.Output.Key == "" {
		ts.Output.Key = ts.Name
	}
	return ts.valid()
}

func (ts *ToySetting) valid() error {
	if ts.Name == "" {
		return errs.Kindf(errs.InvalidConfig, "toy setting: name required")
	}
	if ts.Yield < 0 || math.IsNaN(ts.Yield) || math.IsInf(ts.Yield, 0) {
		return errs.Kindf(errs.InvalidConfig, "toy setting %s: invalid yield %v", ts.Name, ts.Yield)
	}
	switch ts.Output.Format {
	case FormatCSV, FormatCSVZst, FormatSQLite:
	default:
		return errs.Kindf(errs.InvalidConfig, "toy setting %s: unknown output format %q", ts.Name, ts.Output.Format)
	}

	for _, c := range ts.Constraints {
		if c.Param == "" {
			return errs.Kindf(errs.InvalidConfig, "toy setting %s: constraint without param", ts.Name)
		}
		if !(c.Sigma > 0) {
			return errs.Kindf(errs.InvalidConfig, "toy setting %s: constraint %s sigma must be > 0", ts.Name, c.Param)
		}
	}

	for name, sec := range ts.Sections {
		if sec.Model == "" {
			return errs.Kindf(errs.InvalidConfig, "toy setting %s: section %s without model", ts.Name, name)
		}
	}
	for m, secs := range ts.ProtoSections {
		for _, s := range secs {
			if _, ok := ts.Sections[s]; !ok {
				return errs.Kindf(errs.InvalidConfig, "toy setting %s: model %s uses unknown proto section %q", ts.Name, m, s)
			}
		}
	}

	seen := map[string]struct{}{}
	for _, d := range ts.Discrete {
		if d.Var == "" || len(d.Entries) == 0 {
			return errs.Kindf(errs.InvalidConfig, "toy setting %s: discrete distribution needs var and entries", ts.Name)
		}
		if _, dup := seen[d.Var]; dup {
			return errs.Kindf(errs.InvalidConfig, "toy setting %s: discrete var %s configured twice", ts.Name, d.Var)
		}
		seen[d.Var] = struct{}{}
		prev := 0.0
		for _, e := range d.Entries {
			if e.Cum < prev || e.Cum > 1 {
				return errs.Kindf(errs.InvalidConfig, "toy setting %s: discrete var %s cumulative %v not in [%v,1]", ts.Name, d.Var, e.Cum, prev)
			}
			prev = e.Cum
		}
	}

	// 沒有模型也沒有離散變數仍可解析，由生成時回報 ModelNotSet
	return nil
}

// Clone 回傳可安全修改的深拷貝（HTTP 請求覆寫 seed / yield 時使用）。
func (ts *ToySetting) Clone() *ToySetting {
	cp := *ts
	cp.Observables = append([]string(nil), ts.Observables...)
	cp.Constraints = append([]ConstraintSetting(nil), ts.Constraints...)
	if ts.ParamValues != nil {
		cp.ParamValues = make(map[string]float64, len(ts.ParamValues))
		for k, v := range ts.ParamValues {
			cp.ParamValues[k] = v
		}
	}
	if ts.ProtoSections != nil {
		cp.ProtoSections = make(map[string][]string, len(ts.ProtoSections))
		for k, v := range ts.ProtoSections {
			cp.ProtoSections[k] = append([]string(nil), v...)
		}
	}
	if ts.Sections != nil {
		cp.Sections = make(map[string]SectionSetting, len(ts.Sections))
		for k, v := range ts.Sections {
			v.Observables = append([]string(nil), v.Observables...)
			cp.Sections[k] = v
		}
	}
	cp.Discrete = make([]DiscreteSetting, len(ts.Discrete))
	for i, d := range ts.Discrete {
		cp.Discrete[i] = DiscreteSetting{Var: d.Var, Entries: append([]DiscreteEntry(nil), d.Entries...)}
	}
	return &cp
}
