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

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/spec"
)

func sampleDataset(t *testing.T) *data.Dataset {
	t.Helper()
	ds := data.New("x", "tag")
	for i := 0; i < 20; i++ {
		if err := ds.AddWeighted(1+float64(i%2), []float64{float64(i) * 0.25, float64(i % 3)}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return ds
}

func sameDataset(t *testing.T, got, want *data.Dataset) {
	t.Helper()
	if !slices.Equal(got.Columns(), want.Columns()) || got.Len() != want.Len() {
		t.Fatalf("shape: got %s want %s", got, want)
	}
	for i := 0; i < want.Len(); i++ {
		if !slices.Equal(got.Row(i), want.Row(i)) || got.Weight(i) != want.Weight(i) {
			t.Fatalf("row %d: got %v/%v want %v/%v", i, got.Row(i), got.Weight(i), want.Row(i), want.Weight(i))
		}
	}
}

func TestCSVBuffer(t *testing.T) {
	ds := sampleDataset(t)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sameDataset(t, back, ds)
}

func TestFileSinkZstd(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(spec.OutputSetting{File: filepath.Join(dir, "toys", "{key}.csv.zst"), Format: spec.FormatCSVZst})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()
	ds := sampleDataset(t)
	if err := sink.Write(context.Background(), Record{RunID: uuid.New(), Key: "toy_1", Data: ds}); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := ReadFile(filepath.Join(dir, "toys", "toy_1.csv.zst"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sameDataset(t, back, ds)
}

func TestSQLiteSink(t *testing.T) {
	sink, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	ds := sampleDataset(t)
	id := uuid.New()
	rec := Record{RunID: id, Key: "mass", Data: ds, Params: map[string]float64{"mu": 5.28, "nsig": 120}}
	if err := sink.Write(ctx, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := sink.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sameDataset(t, back, ds)

	ps, err := sink.Params(ctx, id)
	if err != nil || ps["mu"] != 5.28 || ps["nsig"] != 120 {
		t.Fatalf("params: %v %v", ps, err)
	}
	runs, err := sink.Runs(ctx, "mass")
	if err != nil || len(runs) != 1 || runs[0] != id {
		t.Fatalf("runs: %v %v", runs, err)
	}
	if err := sink.Write(ctx, Record{Key: "mass", Data: ds}); err == nil {
		t.Fatalf("nil run id should be rejected")
	}
	if _, err := sink.Load(ctx, uuid.New()); err == nil {
		t.Fatalf("unknown run should fail")
	}
}

func TestParamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p", "params.yaml")
	in := map[string]float64{"mu": 5.28, "sigma": 0.012}
	if err := SaveParams(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := ReadParams(path)
	if err != nil || out["mu"] != 5.28 || out["sigma"] != 0.012 {
		t.Fatalf("read: %v %v", out, err)
	}
}

func TestOpenWithoutFile(t *testing.T) {
	sink, err := Open(spec.OutputSetting{})
	if err != nil || sink != nil {
		t.Fatalf("empty output should mean no sink: %v %v", sink, err)
	}
}
