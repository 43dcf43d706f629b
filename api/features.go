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
	"math"

	"github.com/googlegenomics/gffget/genomics"
	"github.com/googlegenomics/gffget/gff"
)

type featuresRequest struct {
	object ObjectHandle
	region genomics.Region
	period int
}

// handle resolves the region against the object's sparse index and returns
// the byte range of the decompressed stream that covers every overlapping
// record, along with the record count.
func (req *featuresRequest) handle(ctx context.Context) (gff.Chunk, int, error) {
	// A short probe read surfaces missing objects and authorization
	// problems as clean storage errors before any parsing starts.
	probe, err := req.object.NewRangeReader(ctx, 0, 1)
	if err != nil {
		return gff.Chunk{}, 0, newStorageError("opening object", err)
	}
	probe.Close()

	rs := newObjectReadSeeker(ctx, req.object)
	defer rs.Close()

	file, err := gff.NewFile(rs, req.period)
	if err != nil {
		return gff.Chunk{}, 0, newFetchError("opening annotation", err)
	}
	defer file.Close()

	start := req.region.Start
	if start == 0 {
		first, err := file.Index().First(req.region.Sequence)
		if err != nil {
			return gff.Chunk{}, 0, newFetchError("resolving region start", err)
		}
		start = first
	}

	end := req.region.End
	if end == 0 {
		end = math.MaxInt64
	}

	chunk, count, err := file.Span(req.region.Sequence, start, end)
	if err != nil {
		return gff.Chunk{}, 0, newFetchError("computing byte range", err)
	}
	return chunk, count, nil
}
