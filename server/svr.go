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

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/server/api"
	"github.com/zintix-labs/toylab/server/app"
	"github.com/zintix-labs/toylab/server/netsvr"
	"github.com/zintix-labs/toylab/server/svrcfg"
)

// Run 組裝並啟動預設 server：
//  1. 驗證 SvrCfg（補上 logger 等預設值）。
//  2. 以 sCfg.Net 建立 chi server。
//  3. 註冊 middleware 與路由。
//  4. 執行 app.Run() 直到收到中止訊號。
//
// Run 不綁定任何檔案路徑或環境變數，依賴全部由 SvrCfg 注入。
func Run(sCfg *svrcfg.SvrCfg) {
	if err := sCfg.Valid(); err != nil {
		// 外層傳入的 logger 可能不可用
		fmt.Fprintln(os.Stderr, err)
		return
	}
	svr := netsvr.NewChiServer(sCfg.Net)
	serve(sCfg, svr, "[toylab] listening on http://localhost"+svr.Address())
}

// RunWithSvr 與 Run 相同，但由呼叫端注入 NetSvr（自訂 adapter、listener 或 server 參數）。
// svr 必須非 nil；若是 ChiAdapter 則必須 Ready()。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if svr == nil {
		sCfg.Log.Error(errs.NewFatal("svr is required").Error())
		return
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		sCfg.Log.Error(errs.NewFatal("default server is not ready").Error())
		return
	}
	serve(sCfg, svr, "[toylab] listening")
}

func serve(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, msg string) {
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes failed", slog.Any("err", err))
		return
	}
	a := app.NewWith(sCfg.Log, svr)
	sCfg.Log.Info(msg)
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
	}
}
