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

package v1

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/spec"
)

// settingRequest 是 /v1/toy 與 /v1/toys 共用的請求欄位：
// 以 name 指定已註冊設定，或以 setting 直接帶入一份 JSON 設定（兩者擇一，setting 優先）。
type settingRequest struct {
	Name    string          `json:"name"`
	Setting json.RawMessage `json:"setting,omitempty"`
	Seed    *int64          `json:"seed,omitempty"`
	Yield   *float64        `json:"yield,omitempty"`
}

// parseQuery 讀取 GET 參數 name / seed / yield。
func (sr *settingRequest) parseQuery(q *http.Request) error {
	v := q.URL.Query()
	sr.Name = v.Get("name")
	if s := v.Get("seed"); s != "" {
		u, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errs.NewWarn("seed must be int64")
		}
		sr.Seed = &u
	}
	if s := v.Get("yield"); s != "" {
		y, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errs.NewWarn("yield must be number")
		}
		sr.Yield = &y
	}
	return nil
}

// resolve 取得設定並清掉所有檔案路徑：經由 HTTP 觸發的生成不讀寫 server 端檔案。
func (sr *settingRequest) resolve(lab *toylab.Toylab) (*spec.ToySetting, int64, error) {
	var (
		ts  *spec.ToySetting
		err error
	)
	switch {
	case len(sr.Setting) > 0:
		ts, err = spec.GetToySettingByJSON(sr.Setting)
	case sr.Name != "":
		if _, ok := lab.EntryByName(sr.Name); !ok {
			return nil, 0, errs.NewWarn("toy setting not found: " + sr.Name)
		}
		ts, err = lab.Setting(sr.Name)
	default:
		return nil, 0, errs.NewWarn("name or setting is required")
	}
	if err != nil {
		return nil, 0, err
	}
	ts.Output.File = ""
	ts.Params = spec.ParamsSetting{}
	if sr.Yield != nil {
		if *sr.Yield < 0 || math.IsNaN(*sr.Yield) || math.IsInf(*sr.Yield, 0) {
			return nil, 0, errs.NewWarn("yield must be a non-negative number")
		}
		ts.Yield = *sr.Yield
	}

	seed := ts.Seed
	if sr.Seed != nil {
		seed = *sr.Seed
	}
	if seed == 0 {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return nil, 0, errs.NewWarn("seed generate failed")
		}
		seed = rnd.Int64()
	}
	return ts, seed, nil
}
