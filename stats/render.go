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

package stats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// Render 定義報表輸出行為
type Render interface {
	Write(w io.Writer, v any) error
}

// Json渲染
type JsonRender struct{}

func (JsonRender) Write(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// YAML渲染
type YAMLRender struct{}

func (YAMLRender) Write(w io.Writer, v any) error {
	// 只有最內層的一維陣列輸出成 flow style：[..., ...]
	return forceReadableList(w, v)
}

// RenderFor 依格式名稱取得渲染器，未知格式回傳 nil。
func RenderFor(format string) Render {
	switch format {
	case "json":
		return JsonRender{}
	case "yaml", "yml":
		return YAMLRender{}
	}
	return nil
}

func forceReadableList(w io.Writer, v any) error {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return err
	}
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
	case yaml.SequenceNode:
		hasChild := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				hasChild = true
				break
			}
		}
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		if !hasChild {
			n.Style = yaml.FlowStyle
		}
	}
}
