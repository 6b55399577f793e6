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
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/toylab/errs"
)

// SaveParams 把參數值寫成 YAML（name: value）。
func SaveParams(path string, params map[string]float64) error {
	raw, err := yaml.Marshal(params)
	if err != nil {
		return errs.Wrap(err, "encode params")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(err, "create params dir")
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.Wrap(err, "write params")
	}
	return nil
}

// ReadParams 讀回 SaveParams 的輸出。
func ReadParams(path string) (map[string]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "read params")
	}
	out := map[string]float64{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, errs.Wrap(err, "decode params")
	}
	return out, nil
}
