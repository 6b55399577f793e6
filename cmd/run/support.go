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
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/corefmt"
	"github.com/zintix-labs/toylab/demo"
	"github.com/zintix-labs/toylab/logger"
	"github.com/zintix-labs/toylab/sdk/perf"
	"github.com/zintix-labs/toylab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	file      string
	toys      int
	worker    int
	seed      int64
	logMode   string
	format    string
	list      bool
	state     string
	saveState string
	pprofmode string
}

func bindVar() {
	flag.StringVar(&cfg.name, "cfg", "sig_bkg", "registered toy setting name")
	flag.StringVar(&cfg.file, "file", "", "toy setting file (.yaml|.yml|.json); overrides -cfg")
	flag.IntVar(&cfg.toys, "toys", 0, "number of toys; 0 generates a single dataset")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed; < 1 uses the setting seed or a random one")
	flag.StringVar(&cfg.logMode, "log-mode", "silence", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.format, "format", "table", "report format: table|json|yaml")
	flag.BoolVar(&cfg.list, "list", false, "list registered toy settings and exit")
	flag.StringVar(&cfg.state, "state", "", "core state file to replay a single toy from")
	flag.StringVar(&cfg.saveState, "save-state", "", "write the core state before generation to this file")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()
}

func (cfg *config) valid() error {
	if cfg.toys < 0 {
		return fmt.Errorf("value err : toys must >= 0")
	}
	if cfg.toys > 0 && (cfg.state != "" || cfg.saveState != "") {
		return fmt.Errorf("value err : -state and -save-state only apply to a single toy")
	}
	if cfg.worker < 1 {
		return fmt.Errorf("value err : workers must > 0")
	}
	if cfg.format != "table" && stats.RenderFor(cfg.format) == nil {
		return fmt.Errorf("value err : unknown format %q", cfg.format)
	}
	if !slices.Contains(perf.Modes, cfg.pprofmode) {
		return fmt.Errorf("value err : unknown pprof mode %q", cfg.pprofmode)
	}
	return nil
}

// execute 解析旗標後執行單次生成或多 toy 模擬。
func execute() error {
	if err := cfg.valid(); err != nil {
		return err
	}
	mode, err := logger.ParseMode(cfg.logMode)
	if err != nil {
		return err
	}
	slogger, ah := logger.NewAsync(4096, mode)
	defer ah.Close()

	lab, err := demo.NewToylab(slogger)
	if err != nil {
		return err
	}
	if cfg.list {
		return list(lab)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.toys == 0 {
		return runOne(ctx, lab)
	}
	return runToys(ctx, lab)
}

func list(lab *toylab.Toylab) error {
	sum, err := lab.Summary()
	if err != nil {
		return err
	}
	p := message.NewPrinter(language.English)
	for _, s := range sum {
		model := s.Model
		if model == "" {
			model = "-"
		}
		p.Printf("%-14s model=%-12s yield=%-8v poisson=%-5v discrete=%v\n", s.Name, model, s.Yield, s.Poisson, s.Discrete)
	}
	return nil
}

func runOne(ctx context.Context, lab *toylab.Toylab) error {
	gen, err := newGenerator(lab)
	if err != nil {
		return err
	}
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[TOY:%s] [SEED:%d]%s\n", green, gen.Name(), gen.Seed(), reset)

	if cfg.state != "" {
		snap, err := corefmt.ReadStateFile(cfg.state)
		if err != nil {
			return err
		}
		if err := gen.RestoreCore(snap); err != nil {
			return err
		}
	}
	if cfg.saveState != "" {
		snap, err := gen.SnapshotCore()
		if err != nil {
			return err
		}
		if err := corefmt.SaveStateFile(cfg.saveState, snap); err != nil {
			return err
		}
	}

	start := time.Now()
	res, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	defer res.Data.Release()
	used := time.Since(start)
	rep := stats.Describe(res.Name, res.Data, res.Expected)
	if cfg.format != "table" {
		return rep.WriteWith(os.Stdout, stats.RenderFor(cfg.format))
	}
	rep.StdOut(used)
	if res.Stored {
		p.Printf("stored run %s (key=%s)\n", res.RunID, res.Key)
	}
	return nil
}

func runToys(ctx context.Context, lab *toylab.Toylab) error {
	seed := max(cfg.seed, 0)
	var (
		toys *toylab.Toys
		err  error
	)
	if cfg.file != "" {
		var gen *toylab.Generator
		if gen, err = newGenerator(lab); err != nil {
			return err
		}
		toys, err = lab.NewToysBySetting(gen.Setting(), seed)
	} else {
		toys, err = lab.NewToys(cfg.name, seed)
	}
	if err != nil {
		return err
	}
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[WORKERS:%d] [TOY:%s] [TOYS:%d] [SEED:%d]%s\n", green, cfg.worker, toys.Name, cfg.toys, toys.Seed(), reset)

	rep, used, err := toys.Run(ctx, cfg.toys, cfg.worker, cfg.format == "table")
	if err != nil {
		return err
	}
	if cfg.format != "table" {
		return rep.WriteWith(os.Stdout, stats.RenderFor(cfg.format))
	}
	rep.StdOut(used)
	return nil
}

// newGenerator 依 -file 或 -cfg 建立 Generator；-seed < 1 時沿用設定內的 seed。
func newGenerator(lab *toylab.Toylab) (*toylab.Generator, error) {
	if cfg.file == "" {
		if cfg.seed < 1 {
			return lab.NewGenerator(cfg.name)
		}
		return lab.NewGeneratorWithSeed(cfg.name, cfg.seed)
	}
	raw, err := os.ReadFile(cfg.file)
	if err != nil {
		return nil, err
	}
	seed := cfg.seed
	if seed < 1 {
		seed = 0
	}
	switch strings.ToLower(filepath.Ext(cfg.file)) {
	case ".yaml", ".yml":
		return lab.NewGeneratorByYAML(raw, seed)
	case ".json":
		return lab.NewGeneratorByJSON(raw, seed)
	default:
		log.Printf("unknown extension %q, trying yaml", filepath.Ext(cfg.file))
		return lab.NewGeneratorByYAML(raw, seed)
	}
}
