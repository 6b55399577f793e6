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

// Package demo_models 提供示範用的模型註冊表。
//
// 每個模型以 init() 註冊；builder 每次呼叫都建出全新的模型樹與觀測量，
// 因此參數改寫（param_values、約束抽樣）不會在兩次生成之間殘留。
package demo_models

import (
	"log"

	"github.com/zintix-labs/toylab/data"
	"github.com/zintix-labs/toylab/model"
)

// Models 是示範模型的註冊表。
var Models = model.NewRegistry()

func register(name string, b model.Builder) {
	if err := Models.Register(name, b); err != nil {
		log.Fatalf("%s register failed: %v", name, err)
	}
}

// 示範共用的觀測量範圍
const (
	massLo = 100.0
	massHi = 150.0
	timeLo = 0.0
	timeHi = 10.0
	errLo  = 0.5
	errHi  = 3.0
)

func mass() *data.Var { return data.NewReal("mass", massLo, massHi) }

func tag() *data.Var { return data.NewCatVar(data.NewCategory("tag", "b", "nb")) }
