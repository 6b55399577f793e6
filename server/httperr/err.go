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

// Package httperr 是 HTTP 邊界層的錯誤映射；核心 errs 套件不依賴 net/http。
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/toylab/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
//   - ctx timeout/cancel             → 504/408
//   - InvalidConfig / ModelNotSet /
//     NotGeneratingDiscreteData      → 422（設定可解析但無法生成）
//   - 其餘 Kind（資料集合併失敗）    → 500
//   - errs.Warn                      → 400
//   - errs.Fatal 或非 *errs.E        → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	switch errs.KindOf(err) {
	case errs.InvalidConfig, errs.ModelNotSet, errs.NotGeneratingDiscreteData:
		return http.StatusUnprocessableEntity
	case errs.DatasetsNotDisjoint, errs.DatasetsNotAppendable:
		return http.StatusInternalServerError
	}

	if e, ok := errs.AsErr(err); ok && e.ErrLv == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Body 是錯誤回應的 JSON 內容。
type Body struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Errs 依錯誤決定 status code 並寫回 JSON 錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(Body{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

// Log 只記錄需要關注的錯誤：逾時類為 Warn，5xx 為 Error。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		log.Warn(msg, slog.Any("err", err), slog.Int("status", status))
	case status >= 500:
		log.Error(msg, slog.Any("err", err), slog.Int("status", status))
	}
}
