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

// Package index builds sparse coordinate indices over coordinate-sorted
// GFF3 streams and answers predecessor queries against them.
//
// The index stores a small set of checkpoints per sequence, each mapping a
// feature start coordinate to the byte offset of its line.  A checkpoint is
// recorded only when the gap between start coordinates exceeds a threshold
// estimated from the file itself, so the expected scan length after seeking
// to a checkpoint tracks the observed local feature density rather than the
// file size.
package index

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/googlegenomics/gffget/internal/lineio"
)

// Entry is a single checkpoint: the start coordinate of a feature and the
// byte offset of the line that holds it.
type Entry struct {
	Start  int64
	Offset int64
}

// Index maps each sequence to its checkpoints.  Within a sequence both the
// start coordinates and the offsets increase strictly, and the first entry
// always describes the first feature of that sequence in the file.
type Index map[string][]Entry

// MissingThresholdError indicates that a sequence reached the index builder
// without a spacing threshold, which happens when it has fewer than
// period+1 distinct start coordinates.
type MissingThresholdError struct {
	Sequence string
}

func (e *MissingThresholdError) Error() string {
	return fmt.Sprintf("no spacing threshold for sequence %q (too few distinct start coordinates for the configured period)", e.Sequence)
}

// UnknownSequenceError indicates a query for a sequence that does not
// appear in the index.
type UnknownSequenceError struct {
	Sequence string
}

func (e *UnknownSequenceError) Error() string {
	return fmt.Sprintf("sequence %q is not present in the index", e.Sequence)
}

// OutOfRangeError indicates a query start coordinate that precedes the
// first indexed coordinate of its sequence.
type OutOfRangeError struct {
	Sequence string
	Start    int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("position %d precedes the first indexed start coordinate of sequence %q", e.Start, e.Sequence)
}

// Build scans rs twice and returns its sparse index.  The first pass
// estimates per-sequence spacing thresholds (see Thresholds), the second
// records a checkpoint for the first feature of each sequence and for every
// feature whose start exceeds the previous checkpointed start by more than
// the threshold.  Features of one sequence must be contiguous and sorted by
// ascending start.  rs is left positioned at the end of the stream.
func Build(rs io.ReadSeeker, period int) (Index, error) {
	thresholds, err := Thresholds(rs, period)
	if err != nil {
		return nil, err
	}

	r := lineio.NewReader(rs)
	idx := make(Index)
	var (
		current   string
		active    bool
		threshold int64
		prevStart int64
		havePrev  bool
	)
	visited := make(map[string]bool)
	for {
		line, offset, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line: %v", err)
		}
		if skippable(line) {
			continue
		}
		seqid, start, err := seqidStart(line)
		if err != nil {
			return nil, fmt.Errorf("at offset %d: %v", offset, err)
		}
		if !active || seqid != current {
			if visited[seqid] {
				return nil, fmt.Errorf("sequence %q is not contiguous", seqid)
			}
			visited[seqid] = true
			t, ok := thresholds[seqid]
			if !ok {
				return nil, &MissingThresholdError{seqid}
			}
			current, active = seqid, true
			threshold = t
			havePrev = false
		}
		if !havePrev || start-prevStart > threshold {
			idx[seqid] = append(idx[seqid], Entry{Start: start, Offset: offset})
			prevStart = start
			havePrev = true
		}
	}
	return idx, nil
}

// Offset returns the byte offset of the rightmost checkpoint of seqid whose
// start coordinate does not exceed start.
func (idx Index) Offset(seqid string, start int64) (int64, error) {
	entries, ok := idx[seqid]
	if !ok {
		return 0, &UnknownSequenceError{seqid}
	}
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Start > start })
	if i == 0 {
		return 0, &OutOfRangeError{seqid, start}
	}
	return entries[i-1].Offset, nil
}

// First returns the lowest indexed start coordinate of seqid, which is the
// start of the first feature of that sequence in the file.
func (idx Index) First(seqid string) (int64, error) {
	entries, ok := idx[seqid]
	if !ok {
		return 0, &UnknownSequenceError{seqid}
	}
	return entries[0].Start, nil
}

// skippable reports whether line carries no feature: a comment or a blank
// line.  Such lines still advance byte offsets.
func skippable(line string) bool {
	return strings.HasPrefix(line, "#") || strings.TrimSpace(line) == ""
}

// seqidStart extracts the sequence name and start coordinate from a feature
// line without decoding the remaining columns.
func seqidStart(line string) (string, int64, error) {
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), "\t", 5)
	if len(fields) < 4 || fields[0] == "" {
		return "", 0, fmt.Errorf("feature line has fewer than 4 tab-separated fields")
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("start coordinate %q is not an integer", fields[3])
	}
	return fields[0], start, nil
}
