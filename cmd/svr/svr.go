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

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zintix-labs/toylab/demo"
	"github.com/zintix-labs/toylab/logger"
	"github.com/zintix-labs/toylab/server"
	"github.com/zintix-labs/toylab/server/netsvr"
	"github.com/zintix-labs/toylab/server/svrcfg"
)

// lab server：以 demo 模型與設定啟動 HTTP API。
func main() {
	cfg, err := loadConfigFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	server.Run(cfg)
}

type config struct {
	LogMode string
	Addr    string
	MaxToys int
	MaxRows int
	Workers int
	Timeout time.Duration
}

func loadConfigFromFlags() (*svrcfg.SvrCfg, error) {
	cfg := new(config)
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.Addr, "addr", netsvr.DefaultOptions.Addr, "listen address")
	flag.IntVar(&cfg.MaxToys, "max-toys", 10000, "max toys per /v1/toys request")
	flag.IntVar(&cfg.MaxRows, "max-rows", 100000, "max rows returned by /v1/toy")
	flag.IntVar(&cfg.Workers, "workers", 4, "workers per /v1/toys request")
	flag.DurationVar(&cfg.Timeout, "write-timeout", netsvr.DefaultOptions.WriteTimeout, "http write timeout")

	flag.Parse()

	mode, err := logger.ParseMode(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	log, _ := logger.NewAsync(4096, mode)

	lab, err := demo.NewToylab(log)
	if err != nil {
		return nil, err
	}
	opts := netsvr.DefaultOptions
	opts.Addr = cfg.Addr
	opts.WriteTimeout = cfg.Timeout
	return &svrcfg.SvrCfg{
		Log:     log,
		Net:     opts,
		Toylab:  lab,
		MaxToys: cfg.MaxToys,
		MaxRows: cfg.MaxRows,
		Workers: cfg.Workers,
	}, nil
}
