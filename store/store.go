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

// Package store 是生成結果的持久化層：資料集與參數值寫到檔案（CSV，可選 zstd 壓縮）或 SQLite。
package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/spec"
)

// weightCol 是寫出時附加的權重欄位名稱。
const weightCol = "__weight"

// Record 是一筆待寫出的生成結果。
type Record struct {
	RunID  uuid.UUID
	Key    string
	Data   *data.Dataset
	Params map[string]float64
}

// Sink 寫出生成結果。實作需可被多個 goroutine 共用。
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Open 依輸出設定開啟 Sink；File 為空時回傳 nil, nil（不寫出）。
func Open(out spec.OutputSetting) (Sink, error) {
	if strings.TrimSpace(out.File) == "" {
		return nil, nil
	}
	switch out.Format {
	case spec.FormatCSV:
		return NewFileSink(out.File, false), nil
	case spec.FormatCSVZst:
		return NewFileSink(out.File, true), nil
	case spec.FormatSQLite:
		s, err := OpenSQLite(out.File)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errs.Kindf(errs.InvalidConfig, "unknown output format %q", out.Format)
	}
}
