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

// Package corefmt 把亂數流快照（Generator.SnapshotCore 的輸出）編成可傳輸的形式：
// JSON / HTTP 用 base64url 文字，檔案用長度前綴的二進位 frame。
package corefmt

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"io"
	"os"

	"github.com/zintix-labs/toylab/errs"
)

// MaxStateBytes 是讀取不受信任輸入時允許的最大快照長度。
const MaxStateBytes = 1 << 16

// EncodeState 以 base64url（無 padding）編碼快照。
func EncodeState(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState 解回 EncodeState 的輸出；格式錯誤或過長回傳 Warn。
func DecodeState(s string) ([]byte, error) {
	if base64.RawURLEncoding.DecodedLen(len(s)) > MaxStateBytes {
		return nil, errs.NewWarn("core state too large")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.NewWarn("decode core state failed: " + err.Error())
	}
	return b, nil
}

// WriteFrame 寫出 uvarint(len) || payload。
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return errs.Wrap(err, "write frame header failed")
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(err, "write frame payload failed")
	}
	return nil
}

// ReadFrame 讀回一個 frame；maxBytes > 0 時拒絕超過長度的 payload。
func ReadFrame(r io.Reader, maxBytes uint64) ([]byte, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		b := bufio.NewReader(r)
		br, r = b, b
	}
	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errs.Wrap(err, "read frame header failed")
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.NewWarn("read frame failed: payload exceeds limit")
	}
	buf := make([]byte, ln)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.Wrap(err, "read frame payload failed")
	}
	return buf, nil
}

// SaveStateFile 把快照以單一 frame 寫到 path。
func SaveStateFile(path string, state []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(err, "create state file")
	}
	if err := WriteFrame(f, state); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(err, "close state file")
	}
	return nil
}

func ReadStateFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err, "open state file")
	}
	defer f.Close()
	return ReadFrame(f, MaxStateBytes)
}
