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

package gff

import (
	"fmt"
	"io"
)

// Iter is a lazy stream of records produced by Fetch.  It reads through the
// file's single cursor: starting another traversal before Next has returned
// io.EOF invalidates the iteration.
type Iter struct {
	file        *File
	seqid       string
	start, end  int64
	featureType string
	done        bool
}

// Fetch seeks to the rightmost index checkpoint at or before start and
// returns an iterator over the records of seqid whose intervals overlap
// [start, end): records with End >= start and Start < end.  If featureType
// is non-empty only records of that type are produced.
//
// Fetch performs exactly one seek; the forward scan ends as soon as a
// record proves that no further matches can follow.  The records of seqid
// must be contiguous in the file and sorted by ascending start, which
// index.Build enforces at open time.
func (f *File) Fetch(seqid string, start, end int64, featureType string) (*Iter, error) {
	offset, err := f.idx.Offset(seqid, start)
	if err != nil {
		return nil, err
	}
	if err := f.seek(offset); err != nil {
		return nil, err
	}
	return &Iter{file: f, seqid: seqid, start: start, end: end, featureType: featureType}, nil
}

// Next returns the next overlapping record.  It returns io.EOF when no
// further matches are possible, either because the scan passed the region
// or because the stream ended.
func (it *Iter) Next() (*Record, error) {
	if it.done {
		return nil, io.EOF
	}
	for {
		record, err := it.file.Next()
		if err != nil {
			it.done = true
			return nil, err
		}
		if record.Seqid != it.seqid {
			// A lexicographically earlier sequence may still precede the
			// target block; a later one means the block has been passed.
			if record.Seqid < it.seqid {
				continue
			}
			it.done = true
			return nil, io.EOF
		}
		if record.End < it.start {
			continue
		}
		if record.Start >= it.end {
			it.done = true
			return nil, io.EOF
		}
		if it.featureType != "" && record.Type != it.featureType {
			continue
		}
		return record, nil
	}
}

// Chunk is a half-open byte range [Start, End) of the decompressed stream.
type Chunk struct {
	Start int64
	End   int64
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d, %d)", c.Start, c.End)
}

// Span runs the same scan as Fetch but instead of decoding results it
// returns the smallest byte range containing every record of seqid that
// overlaps [start, end), along with the number of such records.  The range
// may include comment lines interleaved with the matching records.  A zero
// count comes with an empty chunk.
func (f *File) Span(seqid string, start, end int64) (Chunk, int, error) {
	offset, err := f.idx.Offset(seqid, start)
	if err != nil {
		return Chunk{}, 0, err
	}
	if err := f.seek(offset); err != nil {
		return Chunk{}, 0, err
	}

	var (
		chunk Chunk
		count int
	)
	for {
		line, lineOffset, err := f.r.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Chunk{}, 0, fmt.Errorf("reading line: %v", err)
		}
		if skippable(line) {
			continue
		}
		record, err := ParseRecord(line)
		if err != nil {
			return Chunk{}, 0, err
		}
		if record.Seqid != seqid {
			if record.Seqid < seqid {
				continue
			}
			break
		}
		if record.End < start {
			continue
		}
		if record.Start >= end {
			break
		}
		if count == 0 {
			chunk.Start = lineOffset
		}
		chunk.End = lineOffset + int64(len(line))
		count++
	}
	if count == 0 {
		return Chunk{}, 0, nil
	}
	return chunk, count, nil
}
