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

// Package toylab 提供 toy 資料集生成的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Toylab 把三個必需的地基組裝在一起：
//  1. Catalog：toy 設定目錄，定義有哪些設定、各自對應的設定檔名稱（ConfigName）。
//  2. model.Registry：模型註冊表，提供「如何依名稱建出模型樹與觀測量」的 builders。
//  3. PRNGFactory：亂數核心工廠，保證同一個 seed 得到同一份資料集。
//
// 設定檔來源一律以 fs.FS 注入，Toylab 本身不綁定檔案路徑。
// 對外的最小執行單位是 Generator（單次生成）與 Toys（多次生成 + 統計）。
package toylab

import (
	"crypto/rand"
	"io/fs"
	"log/slog"
	"math"
	"math/big"

	"github.com/zintix-labs/toylab/catalog"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/spec"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Models 把一或多個模型註冊表打包成 New() 需要的參數；New() 會合併它們，重複名稱直接失敗。
func Models(regs ...*model.Registry) []*model.Registry {
	return regs
}

// Toylab 是組裝器與運行入口。
//
// 使用流程分兩階段：
//   - 註冊階段：建立 catalog、合併 registries、檢查設定引用的模型都存在。
//   - 執行階段：Freeze 後依設定名稱建立 Generator / Toys。
type Toylab struct {
	cat *catalog.Catalog
	reg *model.Registry
	cf  core.PRNGFactory
	log *slog.Logger
	sum []catalog.Summary
}

// New 建立一個 Toylab instance（尚未註冊任何設定）。log 為 nil 時丟棄所有紀錄。
func New(cf core.PRNGFactory, log *slog.Logger, cfgs []fs.FS, models []*model.Registry) (*Toylab, error) {
	if cf == nil {
		return nil, errs.NewFatal("core factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(models) == 0 {
		return nil, errs.NewFatal("model registry required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := model.MergeRegistry(models...)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Toylab{cat: cata, reg: reg, cf: cf, log: log}, nil
}

// NewAuto 建立後立即註冊全部設定檔並 Freeze，直接進入執行階段。
func NewAuto(cf core.PRNGFactory, log *slog.Logger, cfgs []fs.FS, models []*model.Registry) (*Toylab, error) {
	lab, err := New(cf, log, cfgs, models)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (t *Toylab) Register(ents ...catalog.Entry) error {
	return t.cat.Register(ents...)
}

// RegisterAll 解析 catalog 持有的每個設定檔，檢查後以設定內的名稱一次性註冊。
//
//  1. Fail-fast：任何一個檔案讀取/解析/檢查失敗都立刻回傳 error。
//  2. 原子性：全部通過才呼叫一次 Register，不會留下半完成的 catalog。
//  3. 檔名排序後處理，行為可重現。
func (t *Toylab) RegisterAll() error {
	files := t.cat.Cfg().Files()
	if len(files) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	entries := make([]catalog.Entry, 0, len(files))
	seen := map[string]string{}
	for _, file := range files {
		src, _ := t.cat.Cfg().GetFS(file)
		raw, err := fs.ReadFile(src, file)
		if err != nil {
			return errs.Wrap(err, "read config failed: "+file)
		}
		ts, err := catalog.ParseByExt(file, raw)
		if err != nil {
			return errs.WrapWithExtra(err, "parse toy setting failed", file)
		}
		if err := t.validModels(ts); err != nil {
			return errs.WrapWithExtra(err, "toy setting references unknown model", file)
		}
		if prev, ok := seen[ts.Name]; ok {
			return errs.Fatalf("duplicate toy setting name: %s (config=%s and %s)", ts.Name, prev, file)
		}
		seen[ts.Name] = file
		entries = append(entries, catalog.Entry{Name: ts.Name, ConfigName: file})
	}
	return t.cat.Register(entries...)
}

func (t *Toylab) Freeze() {
	t.cat.Freeze()
}

func (t *Toylab) EntryByName(name string) (catalog.Entry, bool) {
	return t.cat.GetByName(name)
}

// Names 回傳已註冊的設定名稱（排序後）。
func (t *Toylab) Names() []string {
	return t.cat.Names()
}

// ModelNames 回傳已註冊的模型名稱（排序後）。
func (t *Toylab) ModelNames() []string {
	return t.reg.Names()
}

func (t *Toylab) All() []catalog.Entry {
	return t.cat.All()
}

// Summary 回傳所有設定的摘要；只能在 Freeze 之後呼叫，結果會被快取。
func (t *Toylab) Summary() ([]catalog.Summary, error) {
	if !t.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if t.sum != nil {
		return t.sum, nil
	}
	names := t.cat.Names()
	out := make([]catalog.Summary, 0, len(names))
	for _, n := range names {
		ts, err := t.cat.ToySettingByName(n)
		if err != nil {
			return nil, err
		}
		s := catalog.Summary{
			Name:    ts.Name,
			Model:   ts.Model,
			Yield:   ts.Yield,
			Poisson: ts.Poisson,
			Output:  ts.Output.File,
		}
		for _, d := range ts.Discrete {
			s.Discrete = append(s.Discrete, d.Var)
		}
		out = append(out, s)
	}
	t.sum = out
	return t.sum, nil
}

// Setting 回傳指定名稱的設定（每次重新解析，可自由修改）。
func (t *Toylab) Setting(name string) (*spec.ToySetting, error) {
	if !t.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return t.cat.ToySettingByName(name)
}

// NewGenerator 依設定名稱建立 Generator；seed 取設定內的 seed，未設定時由 crypto/rand 產生。
func (t *Toylab) NewGenerator(name string) (*Generator, error) {
	ts, err := t.Setting(name)
	if err != nil {
		return nil, err
	}
	seed, err := settingSeed(ts)
	if err != nil {
		return nil, err
	}
	return newGenerator(ts, t.reg, t.cf, seed, t.log), nil
}

// NewGeneratorWithSeed 與 NewGenerator 相同，但由呼叫端指定 seed。
func (t *Toylab) NewGeneratorWithSeed(name string, seed int64) (*Generator, error) {
	ts, err := t.Setting(name)
	if err != nil {
		return nil, err
	}
	return newGenerator(ts, t.reg, t.cf, seed, t.log), nil
}

// NewGeneratorBySetting 以呼叫端提供的設定建立 Generator（例如 HTTP 請求內帶的設定）。
// 設定引用的模型必須已註冊。seed 為 0 時與 NewGenerator 相同，取設定內的 seed。
func (t *Toylab) NewGeneratorBySetting(ts *spec.ToySetting, seed int64) (*Generator, error) {
	if err := t.validModels(ts); err != nil {
		return nil, err
	}
	if seed == 0 {
		s, err := settingSeed(ts)
		if err != nil {
			return nil, err
		}
		seed = s
	}
	return newGenerator(ts.Clone(), t.reg, t.cf, seed, t.log), nil
}

func (t *Toylab) NewGeneratorByYAML(raw []byte, seed int64) (*Generator, error) {
	ts, err := spec.GetToySettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	return t.NewGeneratorBySetting(ts, seed)
}

func (t *Toylab) NewGeneratorByJSON(raw []byte, seed int64) (*Generator, error) {
	ts, err := spec.GetToySettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	return t.NewGeneratorBySetting(ts, seed)
}

// NewToys 依設定名稱建立多 toy 執行器。
func (t *Toylab) NewToys(name string, seed int64) (*Toys, error) {
	ts, err := t.Setting(name)
	if err != nil {
		return nil, err
	}
	return newToys(ts, t.reg, t.cf, seed, t.log)
}

func (t *Toylab) NewToysBySetting(ts *spec.ToySetting, seed int64) (*Toys, error) {
	if err := t.validModels(ts); err != nil {
		return nil, err
	}
	return newToys(ts.Clone(), t.reg, t.cf, seed, t.log)
}

// validModels 檢查設定與其 proto 區段引用的模型都已註冊。
func (t *Toylab) validModels(ts *spec.ToySetting) error {
	if ts == nil {
		return errs.NewWarn("nil toy setting")
	}
	if ts.Model != "" && !t.reg.IsExist(ts.Model) {
		return errs.Kindf(errs.InvalidConfig, "model not registered: %s", ts.Model)
	}
	for name, sec := range ts.Sections {
		if !t.reg.IsExist(sec.Model) {
			return errs.Kindf(errs.InvalidConfig, "section %s: model not registered: %s", name, sec.Model)
		}
	}
	return nil
}

func settingSeed(ts *spec.ToySetting) (int64, error) {
	if ts.Seed != 0 {
		return ts.Seed, nil
	}
	return cryptoSeed()
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
