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

package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/catalog"
	"github.com/zintix-labs/toylab/demo/demo_configs"
	"github.com/zintix-labs/toylab/demo/demo_models"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/server/httperr"
	"github.com/zintix-labs/toylab/server/netsvr"
	"github.com/zintix-labs/toylab/server/netsvr/middleware"
	"github.com/zintix-labs/toylab/server/svrcfg"
	"github.com/zintix-labs/toylab/stats"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	lab, err := toylab.NewAuto(core.Default(), nil, toylab.Configs(demo_configs.FS), toylab.Models(demo_models.Models))
	if err != nil {
		t.Fatalf("toylab: %v", err)
	}
	sCfg := &svrcfg.SvrCfg{
		Log:     slog.New(slog.DiscardHandler),
		Toylab:  lab,
		MaxToys: 50,
		MaxRows: 10,
		Workers: 2,
	}
	if err := sCfg.Valid(); err != nil {
		t.Fatalf("valid: %v", err)
	}
	svr := netsvr.NewChiServerDefault()
	if err := RegisterRoutes(svr, sCfg); err != nil {
		t.Fatalf("routes: %v", err)
	}
	return svr.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type toyResp struct {
	RunID    string               `json:"run_id"`
	Name     string               `json:"name"`
	Seed     int64                `json:"seed"`
	Expected float64              `json:"expected"`
	Stats    *stats.DatasetReport `json:"stats"`
	Columns  []string             `json:"columns"`
	Rows     [][]float64          `json:"rows"`
	State    string               `json:"core_state"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// -----------------------------------------------------------------------------
// /v1/models
// -----------------------------------------------------------------------------

func TestModels(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(middleware.ReqIdHeader) == "" {
		t.Fatalf("request id header missing")
	}
	resp := decode[struct {
		Settings []catalog.Summary `json:"settings"`
		Models   []string          `json:"models"`
	}](t, rec)
	if len(resp.Settings) != 6 {
		t.Fatalf("expected 6 demo settings, got %d", len(resp.Settings))
	}
	if !slices.Contains(resp.Models, "sig_bkg") || !slices.Contains(resp.Models, "by_channel") {
		t.Fatalf("models missing: %v", resp.Models)
	}
}

// -----------------------------------------------------------------------------
// /v1/toy
// -----------------------------------------------------------------------------

func TestToyByName(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodPost, "/v1/toy", `{"name":"sig_bkg","seed":7,"rows":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[toyResp](t, rec)
	if resp.Stats.Rows != 1000 {
		t.Fatalf("fixed yield 1000, got %d rows", resp.Stats.Rows)
	}
	if resp.Seed != 7 || resp.RunID == "" {
		t.Fatalf("seed/run id not reported: %+v", resp)
	}
	if !slices.Contains(resp.Columns, "mass") || !slices.Contains(resp.Columns, "tag") {
		t.Fatalf("columns %v", resp.Columns)
	}
	if len(resp.Rows) != 3 {
		t.Fatalf("rows %d", len(resp.Rows))
	}
}

func TestToyRowsCappedByMaxRows(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/v1/toy?name=sig_bkg&seed=1&rows=500", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[toyResp](t, rec); len(resp.Rows) != 10 {
		t.Fatalf("rows must be capped at 10, got %d", len(resp.Rows))
	}
}

func TestToySameSeedSameRows(t *testing.T) {
	h := newTestHandler(t)
	body := `{"name":"mass_time","seed":42,"rows":5}`
	a := decode[toyResp](t, do(t, h, http.MethodPost, "/v1/toy", body))
	b := decode[toyResp](t, do(t, h, http.MethodPost, "/v1/toy", body))
	if len(a.Rows) == 0 {
		t.Fatalf("no rows returned")
	}
	for i := range a.Rows {
		if !slices.Equal(a.Rows[i], b.Rows[i]) {
			t.Fatalf("row %d differs: %v vs %v", i, a.Rows[i], b.Rows[i])
		}
	}
	if a.RunID == b.RunID {
		t.Fatalf("each run needs its own id")
	}
}

func TestToyReplayFromCoreState(t *testing.T) {
	h := newTestHandler(t)
	first := decode[toyResp](t, do(t, h, http.MethodPost, "/v1/toy", `{"name":"by_channel","seed":13,"rows":10}`))
	if first.State == "" {
		t.Fatalf("core_state missing")
	}
	body := `{"name":"by_channel","seed":999,"rows":10,"core_state":"` + first.State + `"}`
	replay := decode[toyResp](t, do(t, h, http.MethodPost, "/v1/toy", body))
	if replay.State != first.State {
		t.Fatalf("replay must start from the given state")
	}
	for i := range first.Rows {
		if !slices.Equal(first.Rows[i], replay.Rows[i]) {
			t.Fatalf("row %d differs after replay", i)
		}
	}
	if rec := do(t, h, http.MethodPost, "/v1/toy", `{"name":"by_channel","core_state":"!!"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad core_state: status %d", rec.Code)
	}
}

func TestToyYieldOverride(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodPost, "/v1/toy", `{"name":"sig_bkg","seed":3,"yield":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decode[toyResp](t, rec); resp.Stats.Rows != 25 {
		t.Fatalf("yield override ignored: %d rows", resp.Stats.Rows)
	}
}

func TestToyCSV(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/v1/toy?name=flavour_only&seed=9&format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content-type %q", ct)
	}
	sc := bufio.NewScanner(bytes.NewReader(rec.Body.Bytes()))
	lines := 0
	for sc.Scan() {
		if lines == 0 && !strings.Contains(sc.Text(), "flavour") {
			t.Fatalf("header %q", sc.Text())
		}
		lines++
	}
	if lines < 2 || lines > 11 {
		t.Fatalf("csv must have a header and at most 10 rows, got %d lines", lines)
	}
}

func TestToyErrors(t *testing.T) {
	h := newTestHandler(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing name", http.MethodPost, "/v1/toy", `{}`, http.StatusBadRequest},
		{"unknown name", http.MethodPost, "/v1/toy", `{"name":"nope"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/v1/toy", `{"name":`, http.StatusBadRequest},
		{"bad seed", http.MethodGet, "/v1/toy?name=sig_bkg&seed=x", "", http.StatusBadRequest},
		{"bad format", http.MethodPost, "/v1/toy", `{"name":"sig_bkg","format":"xml"}`, http.StatusBadRequest},
		{"negative yield", http.MethodPost, "/v1/toy", `{"name":"sig_bkg","yield":-1}`, http.StatusBadRequest},
		{"model not set", http.MethodPost, "/v1/toy", `{"setting":{"name":"empty","yield":10}}`, http.StatusUnprocessableEntity},
		{"unknown model", http.MethodPost, "/v1/toy", `{"setting":{"name":"x","model":"nope"}}`, http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		rec := do(t, h, c.method, c.path, c.body)
		if rec.Code != c.want {
			t.Errorf("%s: status %d want %d (%s)", c.name, rec.Code, c.want, rec.Body.String())
			continue
		}
		var b httperr.Body
		if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil || b.Error == "" {
			t.Errorf("%s: error body %q", c.name, rec.Body.String())
		}
	}
}

func TestToyInlineSettingIgnoresFiles(t *testing.T) {
	h := newTestHandler(t)
	body := `{"seed":5,"setting":{"name":"inline","model":"mass_time","yield":40,"output":{"file":"/tmp/should_not_exist_{key}.csv"},"params":{"save":"/tmp/should_not_exist.yaml"}}}`
	rec := do(t, h, http.MethodPost, "/v1/toy", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[toyResp](t, rec)
	if resp.Name != "inline" || resp.Stats.Rows != 40 {
		t.Fatalf("unexpected response %+v", resp.Stats)
	}
}

// -----------------------------------------------------------------------------
// /v1/toys
// -----------------------------------------------------------------------------

func TestToys(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodPost, "/v1/toys", `{"name":"flavour_only","seed":3,"toys":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Seed  int64             `json:"seed"`
		Stats *stats.ToysReport `json:"stats"`
	}](t, rec)
	if resp.Seed != 3 || resp.Stats.Toys != 20 || resp.Stats.Expected != 200 {
		t.Fatalf("unexpected report %+v", resp.Stats)
	}
	if resp.Stats.Pulls.Total() != 20 {
		t.Fatalf("every toy needs a pull entry, got %d", resp.Stats.Pulls.Total())
	}
}

func TestToysSameSeedSameReport(t *testing.T) {
	h := newTestHandler(t)
	a := do(t, h, http.MethodGet, "/v1/toys?name=sig_bkg_ext&seed=11&toys=8", "")
	b := do(t, h, http.MethodGet, "/v1/toys?name=sig_bkg_ext&seed=11&toys=8", "")
	if a.Code != http.StatusOK {
		t.Fatalf("status %d: %s", a.Code, a.Body.String())
	}
	ra := decode[struct{ Stats *stats.ToysReport }](t, a)
	rb := decode[struct{ Stats *stats.ToysReport }](t, b)
	if ra.Stats.Mean != rb.Stats.Mean || ra.Stats.Median != rb.Stats.Median {
		t.Fatalf("same seed must reproduce the yields: %v vs %v", ra.Stats.Mean, rb.Stats.Mean)
	}
}

func TestToysLimits(t *testing.T) {
	h := newTestHandler(t)
	for _, body := range []string{
		`{"name":"flavour_only","toys":0}`,
		`{"name":"flavour_only","toys":51}`,
	} {
		if rec := do(t, h, http.MethodPost, "/v1/toys", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/v1/toys?name=flavour_only", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing toys: status %d", rec.Code)
	}
}
