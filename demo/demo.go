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

package demo

import (
	"log/slog"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/catalog"
	"github.com/zintix-labs/toylab/demo/demo_configs"
	"github.com/zintix-labs/toylab/demo/demo_models"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/logger"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/server/svrcfg"
)

func New() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

func NewServerConfig() (*svrcfg.SvrCfg, error) {
	log, _ := logger.NewAsync(1024, logger.ModeDev)
	lab, err := NewToylab(log)
	if err != nil {
		return nil, errs.NewFatal("new toylab failed:" + err.Error())
	}
	scfg := &svrcfg.SvrCfg{
		Log:    log,
		Toylab: lab,
	}
	return scfg, nil
}

// NewToylab 以 demo 設定與 demo 模型建立已凍結的 Toylab。log 為 nil 時不輸出。
func NewToylab(log *slog.Logger) (*toylab.Toylab, error) {
	return toylab.NewAuto(
		core.Default(),
		log,
		toylab.Configs(demo_configs.FS),
		toylab.Models(demo_models.Models),
	)
}
