// Copyright 2018 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package common provides shared helpers for sniffing file formats.
package common

import (
	"bytes"
	"fmt"
	"io"
)

// GzipMagic is the three byte signature that starts every gzip member.
var GzipMagic = []byte{0x1f, 0x8b, 0x08}

// HasMagic reads len(magic) bytes from r and reports whether they match
// magic.  A stream shorter than the magic is reported as a mismatch, not an
// error.
func HasMagic(r io.Reader, magic []byte) (bool, error) {
	got := make([]byte, len(magic))
	if _, err := io.ReadFull(r, got); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, fmt.Errorf("reading magic: %v", err)
	}
	return bytes.Equal(got, magic), nil
}
