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

package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/logger"
	"github.com/zintix-labs/toylab/server/netsvr"
)

// SvrCfg 是 server 啟動所需的全部依賴。
type SvrCfg struct {
	Log     *slog.Logger
	Net     netsvr.Options
	Toylab  *toylab.Toylab
	MaxToys int // 單次 /v1/toys 請求的 toy 上限
	MaxRows int // /v1/toy 回應內最多附帶的資料列數
	Workers int // /v1/toys 的平行 worker 上限
}

const (
	defaultMaxToys = 10000
	defaultMaxRows = 100000
	defaultWorkers = 4
)

// Valid 檢查必要依賴並補上預設值。
func (sc *SvrCfg) Valid() error {
	if sc.Toylab == nil {
		return errs.NewFatal("toylab is required")
	}
	if sc.Log == nil {
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.MaxToys <= 0 {
		sc.MaxToys = defaultMaxToys
	}
	if sc.MaxRows <= 0 {
		sc.MaxRows = defaultMaxRows
	}
	if sc.Workers <= 0 {
		sc.Workers = defaultWorkers
	}
	if sc.Net.Addr == "" {
		sc.Net = netsvr.DefaultOptions
	}
	return nil
}
