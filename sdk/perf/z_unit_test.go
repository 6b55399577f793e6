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

package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zintix-labs/toylab/errs"
)

func busy() error {
	s := 0.0
	for i := 0; i < 200000; i++ {
		s += float64(i) * 0.5
	}
	_ = s
	return nil
}

func TestRunWithoutProfile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "none")
	called := false
	if err := Run(func() error { called = true; return nil }, "", dir); err != nil || !called {
		t.Fatalf("plain run: called=%v err=%v", called, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("no profile dir expected without a mode")
	}
}

func TestRunWritesProfiles(t *testing.T) {
	for _, mode := range []string{"cpu", "heap", "allocs"} {
		dir := t.TempDir()
		if err := Run(busy, mode, dir); err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		st, err := os.Stat(filepath.Join(dir, mode+".pprof"))
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: profile missing or empty: %v", mode, err)
		}
	}
}

func TestRunPropagatesError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	if err := Run(func() error { return boom }, "heap", dir); !errors.Is(err, boom) {
		t.Fatalf("exe error lost: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "heap.pprof")); !os.IsNotExist(err) {
		t.Fatalf("no snapshot expected after a failed run")
	}
}

func TestRunUnknownMode(t *testing.T) {
	err := Run(busy, "trace", t.TempDir())
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}
