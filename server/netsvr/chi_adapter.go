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

package netsvr

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Options 是 HTTP server 的監聽位址與逾時設定；零值欄位使用預設值。
//
// 生成多個 toy 的請求可能持續數十秒，WriteTimeout 預設比一般 API 長。
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultOptions 監聽 :5808。
var DefaultOptions = Options{
	Addr:         ":5808",
	ReadTimeout:  10 * time.Second,
	WriteTimeout: 120 * time.Second,
	IdleTimeout:  120 * time.Second,
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultOptions.Addr
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultOptions.ReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultOptions.WriteTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultOptions.IdleTimeout
	}
	return o
}

// ChiAdapter 以 chi 實作 NetSvr；handler 與 middleware 都走 net/http 介面。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	addr   string
}

// NewChiServer 依 Options 建立 ChiAdapter。
func NewChiServer(opts Options) *ChiAdapter {
	opts = opts.withDefaults()
	cr := chi.NewRouter()
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      cr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		addr: opts.Addr,
	}
}

// NewChiServerDefault 以 DefaultOptions 建立 ChiAdapter。
func NewChiServerDefault() *ChiAdapter {
	return NewChiServer(DefaultOptions)
}

func (c *ChiAdapter) Ready() bool {
	return (c != nil) && (c.router != nil) && (c.server != nil) &&
		strings.Contains(c.addr, ":") &&
		(c.server.Handler != nil) && (c.server.Handler == c.router)
}

func (c *ChiAdapter) Run() error {
	return c.server.ListenAndServe()
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Post(path string, h http.HandlerFunc) {
	c.router.Post(path, h)
}

func (c *ChiAdapter) Put(path string, h http.HandlerFunc) {
	c.router.Put(path, h)
}

func (c *ChiAdapter) Delete(path string, h http.HandlerFunc) {
	c.router.Delete(path, h)
}

func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

func (c *ChiAdapter) Address() string {
	return c.addr
}

// Handler 回傳根路由，供 httptest 或掛載到既有服務使用。
func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}
