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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/server/httperr"
	"github.com/zintix-labs/toylab/server/svrcfg"
	"github.com/zintix-labs/toylab/stats"
)

type ToysHandler struct {
	Toylab  *toylab.Toylab
	MaxToys int
	Workers int
}

func NewToysHandler(sCfg *svrcfg.SvrCfg) (*ToysHandler, error) {
	if sCfg == nil || sCfg.Toylab == nil {
		return nil, errs.NewFatal("toylab is required")
	}
	return &ToysHandler{Toylab: sCfg.Toylab, MaxToys: sCfg.MaxToys, Workers: sCfg.Workers}, nil
}

// Toys 平行生成多個 toy，回傳事件數分佈統計（不保留資料集）。
func (th *ToysHandler) Toys(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type ToysRequestBody struct {
		settingRequest
		Toys int `json:"toys"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type ToysResponse struct {
		Seed     int64             `json:"seed"`
		Stats    *stats.ToysReport `json:"stats"`
		UsedTime int64             `json:"used_ms"`
	}
	// ---
	req := new(ToysRequestBody)
	switch q.Method {
	case http.MethodGet:
		if err := req.parseQuery(q); err != nil {
			httperr.Errs(w, err)
			return
		}
		if s := q.URL.Query().Get("toys"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("toys must be integer"))
				return
			}
			req.Toys = n
		} else {
			httperr.Errs(w, errs.NewWarn("toys is required"))
			return
		}
	case http.MethodPost:
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 業務檢驗
	if req.Toys < 1 || req.Toys > th.MaxToys {
		httperr.Errs(w, errs.NewWarn(fmt.Sprintf("toys must be between 1 to %d", th.MaxToys)))
		return
	}
	ts, seed, err := req.resolve(th.Toylab)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	toys, err := th.Toylab.NewToysBySetting(ts, seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build toys err: "+ts.Name))
		return
	}
	rep, used, err := toys.Run(q.Context(), req.Toys, th.Workers, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "toys err"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ToysResponse{Seed: seed, Stats: rep, UsedTime: used.Milliseconds()})
}
