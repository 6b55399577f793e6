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
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
)

// WriteCSV 以表頭 + 每列一行寫出資料集，最後一欄是列權重。
func WriteCSV(w io.Writer, ds *data.Dataset) error {
	cw := csv.NewWriter(w)
	header := append(ds.Columns(), weightCol)
	if err := cw.Write(header); err != nil {
		return errs.Wrap(err, "write csv header")
	}
	rec := make([]string, len(header))
	for i := 0; i < ds.Len(); i++ {
		for j, v := range ds.Row(i) {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rec[len(rec)-1] = strconv.FormatFloat(ds.Weight(i), 'g', -1, 64)
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 讀回 WriteCSV 的輸出；沒有權重欄位時權重為 1。
func ReadCSV(r io.Reader) (*data.Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errs.Wrap(err, "read csv header")
	}
	wj := -1
	cols := make([]string, 0, len(header))
	for j, h := range header {
		if h == weightCol {
			wj = j
			continue
		}
		cols = append(cols, h)
	}
	ds := data.New(cols...)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(err, "read csv row")
		}
		row := make([]float64, 0, len(cols))
		w := 1.0
		for j, s := range rec {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errs.Kindf(errs.InvalidConfig, "csv line %d column %d: %v", line, j, err)
			}
			if j == wj {
				w = v
				continue
			}
			row = append(row, v)
		}
		if err := ds.AddWeighted(w, row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// FileSink 把每筆結果寫成一個 CSV 檔。
// 路徑中的 {key} 會被替換成 Record.Key，多個 toy 可各自寫檔。
type FileSink struct {
	path string
	zst  bool
	mu   sync.Mutex
}

func NewFileSink(path string, zst bool) *FileSink {
	return &FileSink{path: path, zst: zst}
}

// PathFor 回傳 key 對應的實際檔案路徑。
func (f *FileSink) PathFor(key string) string {
	return strings.ReplaceAll(f.path, "{key}", key)
}

func (f *FileSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.PathFor(rec.Key)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, "create output dir")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create output file")
	}
	defer file.Close()

	if !f.zst {
		return WriteCSV(file, rec.Data)
	}
	zw, err := zstd.NewWriter(file)
	if err != nil {
		return errs.Wrap(err, "create zstd writer")
	}
	if err := WriteCSV(zw, rec.Data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (f *FileSink) Close() error { return nil }

// ReadFile 讀回 FileSink 寫出的檔案；副檔名 .zst 時先解壓。
func ReadFile(path string) (*data.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open dataset file")
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, errs.Wrap(err, "create zstd reader")
		}
		defer zr.Close()
		r = zr
	}
	return ReadCSV(r)
}
