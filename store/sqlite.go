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
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	key        TEXT NOT NULL,
	rows       INTEGER NOT NULL,
	columns    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cells (
	run_id TEXT NOT NULL,
	row    INTEGER NOT NULL,
	col    TEXT NOT NULL,
	value  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS cells_run ON cells (run_id, row);
CREATE TABLE IF NOT EXISTS params (
	run_id TEXT NOT NULL,
	name   TEXT NOT NULL,
	value  REAL NOT NULL
);
`

// SQLiteSink 以長格式（run, row, col, value）保存資料集，參數值存於 params 表。
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite 開啟（或建立）資料庫並建立 schema。path 可為 ":memory:"。
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite")
	}
	// 單一連線：:memory: 每條連線各自一個資料庫
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(err, "create sqlite schema")
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, rec Record) error {
	if rec.RunID == uuid.Nil {
		return errs.Kindf(errs.InvalidConfig, "sqlite sink: run id required")
	}
	cols := rec.Data.Columns()
	rawCols, err := json.Marshal(cols)
	if err != nil {
		return errs.Wrap(err, "encode columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	run := rec.RunID.String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, key, rows, columns, created_at) VALUES (?, ?, ?, ?, ?)`,
		run, rec.Key, rec.Data.Len(), string(rawCols), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return errs.Wrap(err, "insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cells (run_id, row, col, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errs.Wrap(err, "prepare cells")
	}
	defer stmt.Close()
	for i := 0; i < rec.Data.Len(); i++ {
		for j, v := range rec.Data.Row(i) {
			if _, err := stmt.ExecContext(ctx, run, i, cols[j], v); err != nil {
				return errs.Wrap(err, "insert cell")
			}
		}
		if _, err := stmt.ExecContext(ctx, run, i, weightCol, rec.Data.Weight(i)); err != nil {
			return errs.Wrap(err, "insert weight")
		}
	}

	if err := writeParams(ctx, tx, run, rec.Params); err != nil {
		return err
	}
	return tx.Commit()
}

func writeParams(ctx context.Context, tx *sql.Tx, run string, params map[string]float64) error {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO params (run_id, name, value) VALUES (?, ?, ?)`, run, n, params[n]); err != nil {
			return errs.Wrap(err, "insert param")
		}
	}
	return nil
}

// Load 讀回某次生成的資料集。
func (s *SQLiteSink) Load(ctx context.Context, runID uuid.UUID) (*data.Dataset, error) {
	run := runID.String()
	var n int
	var rawCols string
	err := s.db.QueryRowContext(ctx, `SELECT rows, columns FROM runs WHERE run_id = ?`, run).Scan(&n, &rawCols)
	if err == sql.ErrNoRows {
		return nil, errs.Warnf("run %s not found", run)
	}
	if err != nil {
		return nil, errs.Wrap(err, "query run")
	}
	var cols []string
	if err := json.Unmarshal([]byte(rawCols), &cols); err != nil {
		return nil, errs.Wrap(err, "decode columns")
	}
	idx := make(map[string]int, len(cols))
	for j, c := range cols {
		idx[c] = j
	}

	rows := make([][]float64, n)
	weights := make([]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(cols))
		weights[i] = 1
	}
	cur, err := s.db.QueryContext(ctx, `SELECT row, col, value FROM cells WHERE run_id = ?`, run)
	if err != nil {
		return nil, errs.Wrap(err, "query cells")
	}
	defer cur.Close()
	for cur.Next() {
		var (
			i   int
			col string
			v   float64
		)
		if err := cur.Scan(&i, &col, &v); err != nil {
			return nil, errs.Wrap(err, "scan cell")
		}
		if i < 0 || i >= n {
			continue
		}
		if col == weightCol {
			weights[i] = v
		} else if j, ok := idx[col]; ok {
			rows[i][j] = v
		}
	}
	if err := cur.Err(); err != nil {
		return nil, errs.Wrap(err, "iterate cells")
	}

	ds := data.NewWithCap(n, cols...)
	for i, r := range rows {
		if err := ds.AddWeighted(weights[i], r); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Params 讀回某次生成保存的參數值。
func (s *SQLiteSink) Params(ctx context.Context, runID uuid.UUID) (map[string]float64, error) {
	cur, err := s.db.QueryContext(ctx, `SELECT name, value FROM params WHERE run_id = ?`, runID.String())
	if err != nil {
		return nil, errs.Wrap(err, "query params")
	}
	defer cur.Close()
	out := map[string]float64{}
	for cur.Next() {
		var name string
		var v float64
		if err := cur.Scan(&name, &v); err != nil {
			return nil, errs.Wrap(err, "scan param")
		}
		out[name] = v
	}
	return out, cur.Err()
}

// Runs 回傳某個鍵下所有生成的 run id（依寫入時間排序）。
func (s *SQLiteSink) Runs(ctx context.Context, key string) ([]uuid.UUID, error) {
	cur, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs WHERE key = ? ORDER BY created_at, run_id`, key)
	if err != nil {
		return nil, errs.Wrap(err, "query runs")
	}
	defer cur.Close()
	var out []uuid.UUID
	for cur.Next() {
		var raw string
		if err := cur.Scan(&raw); err != nil {
			return nil, errs.Wrap(err, "scan run")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errs.Wrap(err, "parse run id")
		}
		out = append(out, id)
	}
	return out, cur.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
