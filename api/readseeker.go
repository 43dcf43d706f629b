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
	"context"
	"fmt"
	"io"
)

// objectReadSeeker adapts an ObjectHandle to io.ReadSeeker by opening a new
// range reader whenever the position changes.  Seeking is lazy: no storage
// request is made until the next Read, so repeated repositioning (as done
// by the annotation index builder) costs one request per scan rather than
// one per seek.
type objectReadSeeker struct {
	ctx    context.Context
	object ObjectHandle
	r      io.ReadCloser
	offset int64
}

func newObjectReadSeeker(ctx context.Context, object ObjectHandle) *objectReadSeeker {
	return &objectReadSeeker{ctx: ctx, object: object}
}

func (rs *objectReadSeeker) Read(p []byte) (int, error) {
	if rs.r == nil {
		r, err := rs.object.NewRangeReader(rs.ctx, rs.offset, -1)
		if err != nil {
			return 0, fmt.Errorf("opening range reader at offset %d: %v", rs.offset, err)
		}
		rs.r = r
	}
	n, err := rs.r.Read(p)
	rs.offset += int64(n)
	return n, err
}

// Seek supports io.SeekStart and io.SeekCurrent.  The object size is not
// known without an extra metadata request, so io.SeekEnd is not supported.
func (rs *objectReadSeeker) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = rs.offset + offset
	default:
		return 0, fmt.Errorf("unsupported whence value %d", whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("negative target offset %d", target)
	}
	if target != rs.offset && rs.r != nil {
		rs.r.Close()
		rs.r = nil
	}
	rs.offset = target
	return target, nil
}

func (rs *objectReadSeeker) Close() error {
	if rs.r == nil {
		return nil
	}
	err := rs.r.Close()
	rs.r = nil
	return err
}
