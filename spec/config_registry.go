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

package spec

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/toylab/errs"
)

func GetToySettingByYAML(data []byte) (*ToySetting, error) {
	ts := &ToySetting{}
	if err := yaml.Unmarshal(data, ts); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ts.init(); err != nil {
		return nil, errs.Wrap(err, "toy setting initialized err")
	}

	return ts, nil
}

func GetToySettingByJSON(data []byte) (*ToySetting, error) {
	ts := &ToySetting{}
	if err := json.Unmarshal(data, ts); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := ts.init(); err != nil {
		return nil, errs.Wrap(err, "toy setting initialized err")
	}

	return ts, nil
}
