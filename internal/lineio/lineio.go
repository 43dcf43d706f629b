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

// Package lineio reads lines from a stream while tracking byte offsets.
package lineio

import (
	"bufio"
	"io"
)

// Reader reads a stream line by line and reports the byte offset at which
// each line starts.  Offsets are relative to the position of the underlying
// reader when the Reader was created, plus the origin passed to
// NewReaderAt.
type Reader struct {
	br     *bufio.Reader
	offset int64
}

// NewReader returns a Reader that treats the current position of r as
// offset zero.
func NewReader(r io.Reader) *Reader {
	return NewReaderAt(r, 0)
}

// NewReaderAt returns a Reader that treats the current position of r as the
// provided offset.  It is used after seeking the underlying stream.
func NewReaderAt(r io.Reader, offset int64) *Reader {
	return &Reader{br: bufio.NewReader(r), offset: offset}
}

// Offset returns the byte offset of the next line to be read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ReadLine returns the next line, including its terminator if present, and
// the byte offset at which it starts.  It returns io.EOF only when no bytes
// remain.
func (r *Reader) ReadLine() (string, int64, error) {
	start := r.offset
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", start, err
	}
	if len(line) == 0 {
		return "", start, io.EOF
	}
	r.offset += int64(len(line))
	return line, start, nil
}
