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

// Package gff provides lazy parsing and indexed region queries over GFF3
// (Generic Feature Format version 3) files, plain or gzip-compressed.
//
// Opening a file streams it twice to build a small sparse index of
// (start coordinate, byte offset) checkpoints per sequence; Fetch then
// answers region queries with a single seek and a bounded forward scan
// instead of reading the whole file.
package gff

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/googlegenomics/gffget/index"
	"github.com/googlegenomics/gffget/internal/common"
	"github.com/googlegenomics/gffget/internal/gzipseek"
	"github.com/googlegenomics/gffget/internal/lineio"
)

// DefaultPeriod is the sampling period used by Open when estimating index
// checkpoint spacing.  Larger periods produce coarser thresholds and
// sparser indices.
const DefaultPeriod = 3

const wantVersion = 3

// VersionError is returned at open time when the version directive on the
// first line is missing or names a version other than 3.
type VersionError struct {
	Version string
}

func (e *VersionError) Error() string {
	if e.Version == "" {
		return "missing gff-version directive"
	}
	return fmt.Sprintf("unsupported GFF version %q (want %d)", e.Version, wantVersion)
}

// File is an open GFF3 file with its sparse index.
//
// A File owns exactly one read cursor.  Sequential iteration with Next and
// region queries started by Fetch share and reposition that cursor, so at
// most one traversal may be active at a time; interleaving two corrupts
// both result streams.  The index itself is immutable after open.
type File struct {
	name    string
	rs      io.ReadSeeker
	r       *lineio.Reader
	idx     index.Index
	closers []io.Closer
}

// Open opens the named plain or gzip-compressed GFF3 file using
// DefaultPeriod for index construction.
func Open(name string) (*File, error) {
	return OpenPeriod(name, DefaultPeriod)
}

// OpenPeriod opens the named file with an explicit index sampling period.
func OpenPeriod(name string, period int) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	file, err := NewFile(f, period)
	if err != nil {
		f.Close()
		return nil, err
	}
	file.name = name
	file.closers = append(file.closers, f)
	return file, nil
}

// NewFile builds a session over rs, which must be positioned anywhere
// within a plain or gzip-compressed GFF3 stream that supports seeking to
// its start.  Compression is detected from the gzip magic bytes and the
// version directive is validated before the index is built.  The caller
// retains ownership of rs unless it was registered through OpenPeriod.
func NewFile(rs io.ReadSeeker, period int) (*File, error) {
	zipped, err := isZipped(rs)
	if err != nil {
		return nil, err
	}

	file := &File{rs: rs}
	if zipped {
		zr, err := gzipseek.NewReader(rs)
		if err != nil {
			return nil, err
		}
		file.rs = zr
		file.closers = append(file.closers, zr)
	}

	if err := file.checkVersion(); err != nil {
		file.Close()
		return nil, err
	}

	idx, err := index.Build(file.rs, period)
	if err != nil {
		file.Close()
		return nil, err
	}
	file.idx = idx

	if err := file.seek(0); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// Name returns the path passed to Open, or the empty string for sessions
// built directly from a stream.
func (f *File) Name() string {
	return f.name
}

// Index exposes the sparse index for read-only use.
func (f *File) Index() index.Index {
	return f.idx
}

// Next returns the next feature record at the cursor, skipping comment and
// blank lines.  It returns io.EOF once the stream is exhausted.
func (f *File) Next() (*Record, error) {
	for {
		line, _, err := f.r.ReadLine()
		if err != nil {
			return nil, err
		}
		if skippable(line) {
			continue
		}
		return ParseRecord(line)
	}
}

// Close releases the session.  Any streams registered by OpenPeriod or
// created for decompression are closed; the index is discarded.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}

// seek repositions the cursor to the given decompressed byte offset.
func (f *File) seek(offset int64) error {
	if _, err := f.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to offset %d: %v", offset, err)
	}
	f.r = lineio.NewReaderAt(f.rs, offset)
	return nil
}

// checkVersion reads the first line of the stream and verifies that its
// second whitespace-delimited token is the integer 3.
func (f *File) checkVersion() error {
	if _, err := f.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding stream: %v", err)
	}
	line, _, err := lineio.NewReader(f.rs).ReadLine()
	if err == io.EOF {
		return &VersionError{}
	}
	if err != nil {
		return fmt.Errorf("reading version directive: %v", err)
	}
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return &VersionError{Version: strings.TrimSpace(line)}
	}
	version, err := strconv.Atoi(tokens[1])
	if err != nil || version != wantVersion {
		return &VersionError{Version: tokens[1]}
	}
	return nil
}

// isZipped sniffs the gzip magic bytes, leaving rs rewound.
func isZipped(rs io.ReadSeeker) (bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("rewinding stream: %v", err)
	}
	zipped, err := common.HasMagic(rs, common.GzipMagic)
	if err != nil {
		return false, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("rewinding stream: %v", err)
	}
	return zipped, nil
}

// skippable reports whether line is a comment or blank line.
func skippable(line string) bool {
	return strings.HasPrefix(line, "#") || strings.TrimSpace(line) == ""
}
