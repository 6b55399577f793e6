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
	"net/http"
	"strconv"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/corefmt"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/sdk/sampler"
	"github.com/zintix-labs/toylab/server/httperr"
	"github.com/zintix-labs/toylab/server/svrcfg"
	"github.com/zintix-labs/toylab/stats"
	"github.com/zintix-labs/toylab/store"
)

type ToyHandler struct {
	Toylab  *toylab.Toylab
	MaxRows int
}

func NewToyHandler(sCfg *svrcfg.SvrCfg) (*ToyHandler, error) {
	if sCfg == nil || sCfg.Toylab == nil {
		return nil, errs.NewFatal("toylab is required")
	}
	return &ToyHandler{Toylab: sCfg.Toylab, MaxRows: sCfg.MaxRows}, nil
}

// Toy 生成一份 toy 資料集並回傳各欄統計；rows > 0 時附上前 rows 列。
// format=csv 時改以 CSV 直接回傳資料列（同樣受 MaxRows 限制）。
func (th *ToyHandler) Toy(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type ToyRequestBody struct {
		settingRequest
		Rows      int    `json:"rows"`
		Format    string `json:"format"`
		CoreState string `json:"core_state,omitempty"` // 以先前回應的 core_state 重現同一份資料
	}
	// 內部結構 不影響外部 也不被外部使用
	type ToyResponse struct {
		RunID    string               `json:"run_id"`
		Name     string               `json:"name"`
		Seed     int64                `json:"seed"`
		Expected float64              `json:"expected"`
		Params   map[string]float64   `json:"params,omitempty"`
		Counts   []sampler.VarCount   `json:"counts,omitempty"`
		Stats    *stats.DatasetReport `json:"stats"`
		Columns  []string             `json:"columns,omitempty"`
		Rows     [][]float64          `json:"rows,omitempty"`
		// 生成前的亂數流快照
		CoreState string `json:"core_state"`
	}
	// ---
	req := new(ToyRequestBody)
	switch q.Method {
	case http.MethodGet:
		if err := req.parseQuery(q); err != nil {
			httperr.Errs(w, err)
			return
		}
		if s := q.URL.Query().Get("rows"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("rows must be integer"))
				return
			}
			req.Rows = n
		}
		req.Format = q.URL.Query().Get("format")
		req.CoreState = q.URL.Query().Get("core_state")
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
	if req.Rows < 0 {
		httperr.Errs(w, errs.NewWarn("rows must be non-negative integer"))
		return
	}
	if req.Format != "" && req.Format != "json" && req.Format != "csv" {
		httperr.Errs(w, errs.NewWarn("format must be json or csv"))
		return
	}
	ts, seed, err := req.resolve(th.Toylab)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	gen, err := th.Toylab.NewGeneratorBySetting(ts, seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build generator err: "+ts.Name))
		return
	}
	if req.CoreState != "" {
		snap, err := corefmt.DecodeState(req.CoreState)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		if err := gen.RestoreCore(snap); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid core_state: "+err.Error()))
			return
		}
	}
	before, err := gen.SnapshotCore()
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "snapshot core err"))
		return
	}
	res, err := gen.Generate(q.Context())
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "generate err"))
		return
	}
	defer res.Data.Release()

	if req.Format == "csv" {
		part := res.Data.Slice(0, th.MaxRows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("X-Run-Id", res.RunID.String())
		w.Header().Set("X-Core-State", corefmt.EncodeState(before))
		store.WriteCSV(w, part)
		return
	}

	resp := ToyResponse{
		RunID:     res.RunID.String(),
		Name:      res.Name,
		Seed:      res.Seed,
		Expected:  res.Expected,
		Params:    res.Params,
		Counts:    res.Counts,
		Stats:     stats.Describe(res.Name, res.Data, res.Expected),
		CoreState: corefmt.EncodeState(before),
	}
	if n := min(req.Rows, th.MaxRows, res.Data.Len()); n > 0 {
		resp.Columns = res.Data.Columns()
		resp.Rows = make([][]float64, n)
		for i := range n {
			resp.Rows[i] = res.Data.Row(i)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
