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

// Package gzipseek provides a read-seekable view of gzip-compressed data.
//
// Plain gzip has no block index, so seeking backwards rewinds the
// compressed source and re-inflates from the start, and seeking forwards
// inflates and discards.  This trades seek cost for the ability to treat
// compressed and uncompressed streams uniformly.
package gzipseek

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
)

// Reader decompresses src and implements io.ReadSeeker over the
// decompressed bytes.
type Reader struct {
	src    io.ReadSeeker
	zr     *gzip.Reader
	offset int64
}

// NewReader rewinds src and returns a Reader positioned at decompressed
// offset zero.
func NewReader(src io.ReadSeeker) (*Reader, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding source: %v", err)
	}
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("initializing gzip reader: %v", err)
	}
	return &Reader{src: src, zr: zr}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.zr.Read(p)
	r.offset += int64(n)
	return n, err
}

// Seek repositions the decompressed stream.  io.SeekEnd is not supported
// because the decompressed size is unknown without inflating everything.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.offset + offset
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("negative position %d", target)
	}

	if target < r.offset {
		if _, err := r.src.Seek(0, io.SeekStart); err != nil {
			return 0, fmt.Errorf("rewinding source: %v", err)
		}
		if err := r.zr.Reset(r.src); err != nil {
			return 0, fmt.Errorf("resetting gzip reader: %v", err)
		}
		r.offset = 0
	}
	if target > r.offset {
		if _, err := io.CopyN(ioutil.Discard, r.zr, target-r.offset); err != nil {
			return 0, fmt.Errorf("skipping to position %d: %v", target, err)
		}
		r.offset = target
	}
	return r.offset, nil
}

// Close closes the decompressor.  The compressed source is owned by the
// caller and stays open.
func (r *Reader) Close() error {
	return r.zr.Close()
}
