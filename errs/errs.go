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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind 是生成流程中可被呼叫端辨識的錯誤種類。
// 同一種 Kind 的錯誤可用 errors.Is(err, errs.ErrXxx) 判斷，不論中間被 Wrap 幾層。
type Kind uint8

const (
	KindNone Kind = iota
	// ModelNotSet 沒有可生成的模型，也沒有要求任何離散變數。
	ModelNotSet
	// NotGeneratingDiscreteData 要求的離散變數不在觀測量集合內。
	NotGeneratingDiscreteData
	// DatasetsNotDisjoint Merge 時列數不等或欄位重疊且不可忽略。
	DatasetsNotDisjoint
	// DatasetsNotAppendable Append 時欄位集合不同。
	DatasetsNotAppendable
	// InvalidConfig 設定檔或模型樹結構錯誤。
	InvalidConfig
)

var kindMap = map[Kind]string{
	KindNone:                  "",
	ModelNotSet:               "model_not_set",
	NotGeneratingDiscreteData: "not_generating_discrete_data",
	DatasetsNotDisjoint:       "datasets_not_disjoint",
	DatasetsNotAppendable:     "datasets_not_appendable",
	InvalidConfig:             "invalid_config",
}

func (k Kind) String() string {
	return kindMap[k]
}

// 各 Kind 的哨兵值，只用於 errors.Is 比對。
var (
	ErrModelNotSet               = &E{Message: "not generating any data: no model and no discrete variables", ErrLv: Fatal, Kind: ModelNotSet}
	ErrNotGeneratingDiscreteData = &E{Message: "discrete variable is not an observable", ErrLv: Fatal, Kind: NotGeneratingDiscreteData}
	ErrDatasetsNotDisjoint       = &E{Message: "datasets are not disjoint", ErrLv: Fatal, Kind: DatasetsNotDisjoint}
	ErrDatasetsNotAppendable     = &E{Message: "datasets are not appendable", ErrLv: Fatal, Kind: DatasetsNotAppendable}
	ErrInvalidConfig             = &E{Message: "invalid config", ErrLv: Fatal, Kind: InvalidConfig}
)

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 為嚴重度；Kind 為可辨識的錯誤種類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Kind != KindNone {
		base = fmt.Sprintf("errlv=%s kind=%s %s", ErrLv(e.ErrLv), e.Kind, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// Is 以 Kind 比對：target 必須是帶 Kind 的 *E。
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || t.Kind == KindNone {
		return false
	}
	return e.Kind == t.Kind
}

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// Kindf 建立帶 Kind 的致命錯誤。生成流程內的錯誤一律不重試，直接回報給最上層。
func Kindf(kind Kind, format string, a ...any) *E {
	return &E{Message: fmt.Sprintf(format, a...), ErrLv: Fatal, Kind: kind}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定訊息包裝底層錯誤。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind。
//   - 若 cause 不是 *E（標準庫或三方依賴錯誤），ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	r := New(Fatal, msg)
	if errors.As(cause, &e) {
		r.ErrLv = e.ErrLv
		r.Kind = e.Kind
	}
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，另外附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 回傳錯誤鏈中第一個帶 Kind 的種類；沒有則回傳 KindNone。
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind != KindNone {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return KindNone
}
