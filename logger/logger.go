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

// Package logger 組裝 toylab 使用的 *slog.Logger。
//
// 兩種注入方式：
//   - 直接傳 *slog.Logger：用 NewDefaultLogger(mode) 或自行組裝。
//   - 傳 slog.Handler：自行組合 JSON/Text/ReplaceAttr/LevelVar 後用 NewLogger(h) 包裝。
//
// 生成引擎、離散取樣與協調層一律接受 *slog.Logger；nil 代表 Discard()。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zintix-labs/toylab/errs"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev LogMode = iota
	ModeProd
	ModeSilence
)

var modeName = map[string]LogMode{
	"dev":     ModeDev,
	"prod":    ModeProd,
	"silence": ModeSilence,
}

// ParseMode 把 CLI / 設定檔的字串轉成 LogMode（不分大小寫）。
func ParseMode(s string) (LogMode, error) {
	m, ok := modeName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return ModeDev, errs.Kindf(errs.InvalidConfig, "unknown log mode %q (dev|prod|silence)", s)
	}
	return m, nil
}

// NewDefaultLogger 依 LogMode 預設值建立 *slog.Logger。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode, os.Stderr))
}

// NewLogger 把自行組裝的 Handler 包成 *slog.Logger；h 為 nil 時用 ModeDev。
func NewLogger(h slog.Handler) *slog.Logger {
	if h == nil {
		h = buildHandler(ModeDev, os.Stderr)
	}
	return slog.New(h)
}

// Discard 回傳丟棄所有紀錄的 logger。
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard 在 log 為 nil 時回傳 Discard()。
func OrDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return Discard()
	}
	return log
}

func buildHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeDev:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	case ModeProd:
		// 正式環境：JSON + stdout
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.DiscardHandler
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
}
