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

// Package perf 以 runtime/pprof 包住一段執行，輸出 cpu / heap / allocs profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/toylab/errs"
)

// Dir 是預設的 profile 寫入目錄。
const Dir = "build/profiling"

// Modes 是可接受的 profile 模式；空字串代表不做 profiling。
var Modes = []string{"", "cpu", "heap", "allocs"}

// Run 依 mode 執行 exe 並把 profile 寫到 dir/<mode>.pprof。
// exe 的錯誤優先回傳；profile 寫出失敗時回傳 Fatal。
func Run(exe func() error, mode string, dir string) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return runCPU(exe, dir)
	case "heap":
		return runAfter(exe, dir, "heap", func(path string) error {
			// 快照前先 GC，取得較準確的 live objects
			runtime.GC()
			return writeProfile(path, "heap")
		})
	case "allocs":
		return runAfter(exe, dir, "allocs", func(path string) error {
			return writeProfile(path, "allocs")
		})
	default:
		return errs.Kindf(errs.InvalidConfig, "unknown pprof mode %q (cpu|heap|allocs)", mode)
	}
}

func runCPU(exe func() error, dir string) error {
	f, err := create(dir, "cpu")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "failed to start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// runAfter 先執行 exe，成功後才寫出快照。
func runAfter(exe func() error, dir, name string, write func(path string) error) error {
	if err := exe(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "create profiling dir")
	}
	return write(filepath.Join(dir, name+".pprof"))
}

func writeProfile(path, name string) error {
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.Fatalf("profile %s not available", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "failed to create "+path)
	}
	defer f.Close()
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "failed to write "+name+" profile")
	}
	return nil
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create profiling dir")
	}
	f, err := os.Create(filepath.Join(dir, name+".pprof"))
	if err != nil {
		return nil, errs.Wrap(err, "failed to create "+name+".pprof")
	}
	return f, nil
}
