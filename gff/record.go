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
	"net/url"
	"strconv"
	"strings"
)

// MalformedRecordError describes a feature line that does not satisfy the
// GFF3 column layout.
type MalformedRecordError struct {
	Line   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Line, e.Reason)
}

// Record is a single GFF3 feature line.
type Record struct {
	// Seqid names the chromosome or scaffold the feature belongs to.
	Seqid string
	// Source names the program that generated the feature.
	Source string
	// Type is the feature type (gene, exon, mRNA, ...).
	Type string
	// Start and End are the 1-indexed, inclusive bounds of the feature.
	Start int64
	End   int64
	// Score holds the feature quality score.  It is meaningful only when
	// HasScore is true; a '.' in the score column means no score.
	Score    float64
	HasScore bool
	// Strand is "+", "-" or ".".
	Strand string
	// Phase is the codon phase (0, 1 or 2), meaningful only when HasPhase
	// is true.
	Phase    int
	HasPhase bool
	// Attributes holds the decoded tag/value pairs of the ninth column.
	// Values are percent-decoded.
	Attributes map[string][]string

	raw string
}

// String returns the record as it appeared in the file, without the line
// terminator.
func (r *Record) String() string {
	return r.raw
}

// Length returns the number of bases spanned by the feature.
func (r *Record) Length() int64 {
	return r.End - r.Start
}

// HasTag reports whether tag appears in the attributes column.
func (r *Record) HasTag(tag string) bool {
	_, ok := r.Attributes[tag]
	return ok
}

// Tag returns the values recorded for tag.
func (r *Record) Tag(tag string) ([]string, bool) {
	values, ok := r.Attributes[tag]
	return values, ok
}

// ParseRecord decodes a single feature line.  The line must carry the nine
// tab-separated GFF3 columns: seqid, source, type, start, end, score,
// strand, phase and attributes.
func ParseRecord(line string) (*Record, error) {
	raw := strings.TrimSpace(line)
	fields := strings.Split(raw, "\t")
	if len(fields) < 9 {
		return nil, &MalformedRecordError{raw, fmt.Sprintf("got %d tab-separated fields, want 9", len(fields))}
	}

	record := &Record{
		Seqid:  fields[0],
		Source: fields[1],
		Type:   fields[2],
		Strand: fields[6],
		raw:    raw,
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, &MalformedRecordError{raw, fmt.Sprintf("start %q is not an integer", fields[3])}
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, &MalformedRecordError{raw, fmt.Sprintf("end %q is not an integer", fields[4])}
	}
	record.Start, record.End = start, end

	if score := fields[5]; score != "." {
		v, err := strconv.ParseFloat(score, 64)
		if err != nil {
			return nil, &MalformedRecordError{raw, fmt.Sprintf("score %q is not a number", score)}
		}
		record.Score, record.HasScore = v, true
	}
	if phase := fields[7]; phase != "." {
		v, err := strconv.Atoi(phase)
		if err != nil {
			return nil, &MalformedRecordError{raw, fmt.Sprintf("phase %q is not an integer", phase)}
		}
		record.Phase, record.HasPhase = v, true
	}

	attributes, err := parseAttributes(fields[len(fields)-1])
	if err != nil {
		return nil, &MalformedRecordError{raw, err.Error()}
	}
	record.Attributes = attributes
	return record, nil
}

// parseAttributes decodes the ';'-separated tag=value[,value...] pairs of
// the attributes column.  A bare '.' means no attributes.
func parseAttributes(column string) (map[string][]string, error) {
	attributes := make(map[string][]string)
	if column == "" || column == "." {
		return attributes, nil
	}
	for _, pair := range strings.Split(column, ";") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("attribute %q has no '='", pair)
		}
		for _, value := range strings.Split(kv[1], ",") {
			decoded, err := url.PathUnescape(value)
			if err != nil {
				return nil, fmt.Errorf("decoding attribute value %q: %v", value, err)
			}
			attributes[kv[0]] = append(attributes[kv[0]], decoded)
		}
	}
	return attributes, nil
}
