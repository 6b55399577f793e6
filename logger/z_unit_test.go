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

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type syncBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuf) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuf) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]LogMode{"dev": ModeDev, " PROD ": ModeProd, "silence": ModeSilence} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("loud"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	buf := &syncBuf{}
	ah := NewAsyncHandler(slog.NewTextHandler(buf, nil), 64)
	log := slog.New(ah).With(slog.String("run", "r1"))
	for i := 0; i < 10; i++ {
		log.Info("toy done", slog.Int("toy", i))
	}
	ah.Close()
	out := buf.String()
	if n := strings.Count(out, "toy done"); n+int(ah.Dropped()) != 10 {
		t.Fatalf("written %d + dropped %d != 10", n, ah.Dropped())
	}
	if !strings.Contains(out, "run=r1") {
		t.Fatalf("attrs lost: %q", out)
	}
	log.Info("after close")
	if strings.Contains(buf.String(), "after close") {
		t.Fatalf("records after Close must be dropped")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatalf("nil logger should become discard")
	}
	l := NewDefaultLogger(ModeSilence)
	if OrDiscard(l) != l {
		t.Fatalf("non-nil logger should pass through")
	}
}
