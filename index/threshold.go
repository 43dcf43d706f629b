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

package index

import (
	"fmt"
	"io"

	"github.com/googlegenomics/gffget/internal/lineio"
)

// Thresholds estimates the typical local spacing of feature start
// coordinates for each sequence in rs.
//
// For every sequence it collects the distinct start coordinates in
// first-seen order and averages the differences between coordinates period
// positions apart, truncating toward zero.  Sequences with fewer than
// period+1 distinct coordinates contribute no differences and are omitted
// from the result.  Lines that do not yield an integer start coordinate are
// dropped; this pass is deliberately cheap and leaves strict validation to
// the callers that decode full records.
//
// rs is rewound to the start of the stream before and after the pass.
func Thresholds(rs io.ReadSeeker, period int) (map[string]int64, error) {
	if period < 1 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding stream: %v", err)
	}

	starts := make(map[string][]int64)
	seen := make(map[string]map[int64]bool)
	r := lineio.NewReader(rs)
	for {
		line, _, err := r.ReadLine()
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
			continue
		}
		if seen[seqid] == nil {
			seen[seqid] = make(map[int64]bool)
		}
		if seen[seqid][start] {
			continue
		}
		seen[seqid][start] = true
		starts[seqid] = append(starts[seqid], start)
	}

	thresholds := make(map[string]int64)
	for seqid, coords := range starts {
		var sum, n int64
		for i := period; i < len(coords); i++ {
			sum += coords[i] - coords[i-period]
			n++
		}
		if n == 0 {
			continue
		}
		thresholds[seqid] = sum / n
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding stream: %v", err)
	}
	return thresholds, nil
}
