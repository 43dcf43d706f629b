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

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/googlegenomics/gffget/gff"
	"github.com/googlegenomics/gffget/internal/common"
	"github.com/googlegenomics/gffget/internal/gzipseek"
)

type sliceRequest struct {
	object ObjectHandle
	chunk  gff.Chunk
}

// handle returns a reader over the requested byte range of the decompressed
// stream.  Plain objects are served with a single storage range request;
// gzip-compressed objects are inflated server-side up to the requested
// range since compressed offsets do not correspond to record boundaries.
func (req *sliceRequest) handle(ctx context.Context) (io.ReadCloser, error) {
	if req.chunk.End <= req.chunk.Start {
		return nil, newInvalidRangeError(fmt.Errorf("empty chunk %s", req.chunk))
	}
	length := req.chunk.End - req.chunk.Start

	zipped, err := isObjectZipped(ctx, req.object)
	if err != nil {
		return nil, newStorageError("probing object", err)
	}

	if !zipped {
		r, err := req.object.NewRangeReader(ctx, req.chunk.Start, length)
		if err != nil {
			return nil, newStorageError("opening range reader", err)
		}
		return r, nil
	}

	rs := newObjectReadSeeker(ctx, req.object)
	zr, err := gzipseek.NewReader(rs)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("opening gzip reader: %v", err)
	}
	if _, err := zr.Seek(req.chunk.Start, io.SeekStart); err != nil {
		zr.Close()
		rs.Close()
		return nil, fmt.Errorf("seeking to offset %d: %v", req.chunk.Start, err)
	}
	return &limitedReadCloser{io.LimitReader(zr, length), []io.Closer{zr, rs}}, nil
}

// isObjectZipped reads the first bytes of the object and checks them
// against the gzip magic number.
func isObjectZipped(ctx context.Context, object ObjectHandle) (bool, error) {
	probe, err := object.NewRangeReader(ctx, 0, int64(len(common.GzipMagic)))
	if err != nil {
		return false, err
	}
	defer probe.Close()

	head, err := ioutil.ReadAll(probe)
	if err != nil {
		return false, fmt.Errorf("reading magic bytes: %v", err)
	}
	return bytes.Equal(head, common.GzipMagic), nil
}

type limitedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *limitedReadCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
