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

package toylab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/model"
	"github.com/zintix-labs/toylab/sdk/core"
	"github.com/zintix-labs/toylab/spec"
	"github.com/zintix-labs/toylab/stats"
	"github.com/zintix-labs/toylab/store"
)

const capPrepare int = 16

// Toys 以同一份設定重複生成多個 toy，平行執行並彙整產量統計。
//
// 每個 toy 的 seed 由 seedMaker 依序推導，與 worker 數量和排程無關，
// 因此同一個初始 seed 下第 i 個 toy 永遠得到同一份資料集。
type Toys struct {
	Name      string
	setting   *spec.ToySetting
	reg       *model.Registry
	cf        core.PRNGFactory
	log       *slog.Logger
	initSeed  int64
	seedmaker *seedMaker
	gBuf      []*Generator
}

func newToys(ts *spec.ToySetting, reg *model.Registry, cf core.PRNGFactory, seed int64, log *slog.Logger) (*Toys, error) {
	if seed == 0 {
		s, err := settingSeed(ts)
		if err != nil {
			return nil, err
		}
		seed = s
	}
	return &Toys{
		Name:      ts.Name,
		setting:   ts,
		reg:       reg,
		cf:        cf,
		log:       log,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		gBuf:      make([]*Generator, 0, capPrepare),
	}, nil
}

func (t *Toys) Seed() int64 { return t.initSeed }

// Run 平行生成 n 個 toy，回傳產量統計與用時。任一 toy 失敗即取消其餘工作並回傳第一個錯誤。
func (t *Toys) Run(ctx context.Context, n int, workers int, showpb bool) (*stats.ToysReport, time.Duration, error) {
	if n < 1 {
		return nil, 0, errs.NewWarn("toys must > 0")
	}
	if workers < 1 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	workers = min(workers, n)

	out := t.setting.Output
	if out.File != "" && out.Format != spec.FormatSQLite && !strings.Contains(out.File, "{key}") {
		return nil, 0, errs.Kindf(errs.InvalidConfig, "toys output file %q needs a {key} placeholder", out.File)
	}
	// 每個 toy 各寫一份參數檔，否則 worker 會同時覆寫同一路徑
	if save := t.setting.Params.Save; save != "" && !strings.Contains(save, "{key}") {
		return nil, 0, errs.Kindf(errs.InvalidConfig, "toys params save path %q needs a {key} placeholder", save)
	}
	sink, err := store.Open(out)
	if err != nil {
		return nil, 0, err
	}
	if sink != nil {
		defer sink.Close()
	}

	// seed 先依序全部推導好，toy i 固定使用 seeds[i]
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = t.seedmaker.next()
	}
	for len(t.gBuf) < workers {
		t.gBuf = append(t.gBuf, newGenerator(t.setting, t.reg, t.cf, t.initSeed, t.log))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		yields   = make([]int, n)
		expected = make([]float64, n)
		firstErr error
		errOnce  sync.Once
	)
	jobs := make(chan int, workers*2)
	bar := pb.StartNew(n)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	wg := new(sync.WaitGroup)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(g *Generator) {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				g.reseed(seeds[i])
				res, err := g.generate(ctx, fmt.Sprintf("%s_%d", out.Key, i), sink)
				if err != nil {
					errOnce.Do(func() {
						firstErr = errs.WrapWithExtra(err, "toy failed", fmt.Sprintf("toy=%d seed=%d", i, seeds[i]))
						cancel()
					})
					continue
				}
				yields[i] = res.Data.Len()
				expected[i] = res.Expected
				res.Data.Release()
				bar.Increment()
			}
		}(t.gBuf[w])
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	if firstErr != nil {
		return nil, used, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, used, errs.Wrap(err, "toys canceled")
	}
	t.log.Info("toys done", slog.Int("toys", n), slog.Int("workers", workers), slog.Duration("used", used))
	rep := stats.Summarize(t.Name, expected[0], t.setting.Poisson, yields)
	return rep, used, nil
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// next 以全週期 LCG 推進 state，再用可逆 mix63 打散；可被多個 goroutine 同時呼叫。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
