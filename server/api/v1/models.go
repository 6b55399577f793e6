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

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/toylab"
	"github.com/zintix-labs/toylab/catalog"
	"github.com/zintix-labs/toylab/errs"
	"github.com/zintix-labs/toylab/server/httperr"
)

type ModelsHandler struct {
	Toylab *toylab.Toylab
}

func NewModelsHandler(lab *toylab.Toylab) (*ModelsHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("toylab is required")
	}
	return &ModelsHandler{Toylab: lab}, nil
}

// Models 列出已註冊的設定摘要與模型名稱。
func (mh *ModelsHandler) Models(w http.ResponseWriter, r *http.Request) {
	type ModelsResponse struct {
		Settings []catalog.Summary `json:"settings"`
		Models   []string          `json:"models"`
	}
	sum, err := mh.Toylab.Summary()
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "summary err"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ModelsResponse{Settings: sum, Models: mh.Toylab.ModelNames()})
}
