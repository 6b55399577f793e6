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
	"log/slog"

	v1 "github.com/zintix-labs/toylab/server/api/v1"
	"github.com/zintix-labs/toylab/server/netsvr"
	"github.com/zintix-labs/toylab/server/netsvr/middleware"
	"github.com/zintix-labs/toylab/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 v1 api。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log) // 1. 註冊 middleware
	return registerV1API(svr, sCfg)   // 2. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	m, err := v1.NewModelsHandler(sCfg.Toylab)
	if err != nil {
		return err
	}
	t, err := v1.NewToyHandler(sCfg)
	if err != nil {
		return err
	}
	ts, err := v1.NewToysHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/models", m.Models)

		vOne.Get("/toy", t.Toy)
		vOne.Get("/toys", ts.Toys)

		vOne.Post("/toy", t.Toy)
		vOne.Post("/toys", ts.Toys)
	})
	return nil
}
