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

// Package netsvr 把 HTTP 框架包成 NetSvr，讓 api 層只面對路由介面。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/toylab/server/app"
)

// NetSvr 是可註冊路由、也可交給 app.App 管理生命週期的 HTTP server。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 只有路由行為；Group 回呼拿到的是 NetRouter，碰不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
