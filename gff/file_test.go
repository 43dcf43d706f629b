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
	"compress/gzip"
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/googlegenomics/gffget/index"
)

func testContent() string {
	return "##gff-version 3\n" +
		gffLine("chr1", "test", "gene", "100", "200", ".", "+", ".", "ID=gene1") +
		gffLine("chr1", "test", "exon", "300", "400", ".", "+", "0", "ID=exon1;Parent=gene1") +
		"# a comment inside the chr1 block\n" +
		gffLine("chr1", "test", "gene", "500", "600", "0.9", "+", ".", "ID=gene2") +
		gffLine("chr1", "test", "gene", "700", "800", ".", "-", ".", "ID=gene3") +
		gffLine("chr2", "test", "gene", "50", "150", ".", "+", ".", "ID=gene4") +
		gffLine("chr2", "test", "gene", "250", "350", ".", "+", ".", "ID=gene5") +
		gffLine("chr2", "test", "gene", "450", "550", ".", "+", ".", "ID=gene6") +
		gffLine("chr2", "test", "gene", "650", "750", ".", "+", ".", "ID=gene7")
}

func writeTestFile(t *testing.T, dir, content string, zipped bool) string {
	t.Helper()
	name := filepath.Join(dir, "test.gff")
	if zipped {
		name += ".gz"
		f, err := os.Create(name)
		if err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		defer f.Close()
		zw := gzip.NewWriter(f)
		if _, err := zw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("Failed to finish test file: %v", err)
		}
		return name
	}
	if err := ioutil.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return name
}

func collect(t *testing.T, it *Iter) []*Record {
	t.Helper()
	var records []*Record
	for {
		record, err := it.Next()
		if err == io.EOF {
			return records
		}
		if err != nil {
			t.Fatalf("Iteration failed: %v", err)
		}
		records = append(records, record)
	}
}

func TestSequentialIteration(t *testing.T) {
	for _, zipped := range []bool{false, true} {
		name := "plain"
		if zipped {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "gff")
			if err != nil {
				t.Fatalf("Failed to create temporary directory: %v", err)
			}
			defer os.RemoveAll(dir)

			file, err := Open(writeTestFile(t, dir, testContent(), zipped))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer file.Close()

			var ids []string
			for {
				record, err := file.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next failed: %v", err)
				}
				values, _ := record.Tag("ID")
				ids = append(ids, values[0])
			}
			want := []string{"gene1", "exon1", "gene2", "gene3", "gene4", "gene5", "gene6", "gene7"}
			if strings.Join(ids, ",") != strings.Join(want, ",") {
				t.Errorf("Wrong records: got %v, want %v", ids, want)
			}
		})
	}
}

func TestOpenVersionErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"version 2", "##gff-version 2\n" + gffLine("chr1", "t", "gene", "1", "2", ".", "+", ".", "ID=g")},
		{"no directive", gffLine("chr1", "t", "gene", "1", "2", ".", "+", ".", "ID=g")},
		{"empty file", ""},
		{"bare directive", "##gff-version\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "gff")
			if err != nil {
				t.Fatalf("Failed to create temporary directory: %v", err)
			}
			defer os.RemoveAll(dir)

			_, err = Open(writeTestFile(t, dir, tc.content, false))
			if err == nil {
				t.Fatal("Open accepted a file without a valid version directive")
			}
			if _, ok := err.(*VersionError); !ok {
				t.Errorf("Wrong error type: got %T (%v)", err, err)
			}
		})
	}
}

func TestFetchRegion(t *testing.T) {
	content := "##gff-version 3\n" +
		gffLine("chr1", "test", "gene", "100", "200", ".", "+", ".", "ID=g1") +
		gffLine("chr1", "test", "gene", "300", "400", ".", "+", ".", "ID=g2") +
		gffLine("chr1", "test", "gene", "500", "600", ".", "+", ".", "ID=g3") +
		gffLine("chr1", "test", "gene", "700", "800", ".", "+", ".", "ID=g4")

	for _, zipped := range []bool{false, true} {
		name := "plain"
		if zipped {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "gff")
			if err != nil {
				t.Fatalf("Failed to create temporary directory: %v", err)
			}
			defer os.RemoveAll(dir)

			file, err := Open(writeTestFile(t, dir, content, zipped))
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer file.Close()

			it, err := file.Fetch("chr1", 250, 450, "")
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			records := collect(t, it)
			if len(records) != 1 {
				t.Fatalf("Wrong match count: got %d, want 1 (%v)", len(records), records)
			}
			if records[0].Start != 300 || records[0].End != 400 {
				t.Errorf("Wrong record: got %d-%d, want 300-400", records[0].Start, records[0].End)
			}
		})
	}
}

func TestFetchUnknownSequence(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	_, err = file.Fetch("chrX", 1, 100, "")
	if _, ok := err.(*index.UnknownSequenceError); !ok {
		t.Errorf("Wrong error type: got %T (%v)", err, err)
	}
}

func TestFetchOutOfRange(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	_, err = file.Fetch("chr1", 1, 100, "")
	if _, ok := err.(*index.OutOfRangeError); !ok {
		t.Errorf("Wrong error type: got %T (%v)", err, err)
	}
}

func TestFetchTypeFilter(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	it, err := file.Fetch("chr1", 100, 900, "exon")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	records := collect(t, it)
	if len(records) != 1 || records[0].Type != "exon" {
		t.Errorf("Wrong records: got %v, want a single exon", records)
	}
}

func TestFetchBoundaries(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	regions := []struct{ start, end int64 }{
		{100, 101}, {150, 350}, {200, 500}, {400, 401}, {700, math.MaxInt64},
	}
	for _, region := range regions {
		it, err := file.Fetch("chr1", region.start, region.end, "")
		if err != nil {
			t.Fatalf("Fetch(%d, %d) failed: %v", region.start, region.end, err)
		}
		for _, record := range collect(t, it) {
			if record.End < region.start || record.Start >= region.end {
				t.Errorf("Record %d-%d outside region [%d, %d)",
					record.Start, record.End, region.start, region.end)
			}
		}
	}
}

func TestFetchIdempotent(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	fetch := func() []string {
		it, err := file.Fetch("chr2", 100, 500, "")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		var lines []string
		for _, record := range collect(t, it) {
			lines = append(lines, record.String())
		}
		return lines
	}

	first, second := fetch(), fetch()
	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Errorf("Fetch not idempotent: first %v, second %v", first, second)
	}
	if len(first) != 3 {
		t.Errorf("Wrong match count: got %d, want 3", len(first))
	}
}

// Sequential iteration must agree with fetching every sequence across its
// full coordinate range, in file order.
func TestIterationMatchesFetchConcatenation(t *testing.T) {
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, testContent(), false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	var sequential []string
	var order []string
	for {
		record, err := file.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		sequential = append(sequential, record.String())
		if len(order) == 0 || order[len(order)-1] != record.Seqid {
			order = append(order, record.Seqid)
		}
	}

	var fetched []string
	for _, seqid := range order {
		first, err := file.Index().First(seqid)
		if err != nil {
			t.Fatalf("First(%q) failed: %v", seqid, err)
		}
		it, err := file.Fetch(seqid, first, math.MaxInt64, "")
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", seqid, err)
		}
		for _, record := range collect(t, it) {
			fetched = append(fetched, record.String())
		}
	}

	if strings.Join(sequential, "\n") != strings.Join(fetched, "\n") {
		t.Errorf("Sequential and fetched records differ:\n%v\nvs\n%v", sequential, fetched)
	}
}

func TestOpenMissingThreshold(t *testing.T) {
	content := "##gff-version 3\n" +
		gffLine("chr1", "test", "gene", "10", "20", ".", "+", ".", "ID=a") +
		gffLine("chr1", "test", "gene", "20", "30", ".", "+", ".", "ID=b") +
		gffLine("chr1", "test", "gene", "30", "40", ".", "+", ".", "ID=c") +
		gffLine("chr1", "test", "gene", "1000", "1100", ".", "+", ".", "ID=d") +
		gffLine("chr2", "test", "gene", "5", "15", ".", "+", ".", "ID=e")

	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)
	name := writeTestFile(t, dir, content, false)

	_, err = Open(name)
	missing, ok := err.(*index.MissingThresholdError)
	if !ok {
		t.Fatalf("Wrong error type: got %T (%v)", err, err)
	}
	if missing.Sequence != "chr2" {
		t.Errorf("Wrong sequence: got %q, want %q", missing.Sequence, "chr2")
	}
}

func TestNextSurfacesMalformedRecords(t *testing.T) {
	// The short line carries enough fields for indexing but not for full
	// record decoding, so the failure surfaces during traversal.
	content := "##gff-version 3\n" +
		gffLine("chr1", "test", "gene", "100", "200", ".", "+", ".", "ID=a") +
		gffLine("chr1", "test", "gene", "300", "400", ".", "+", ".", "ID=b") +
		gffLine("chr1", "test", "gene", "500", "600", ".", "+", ".", "ID=c") +
		gffLine("chr1", "test", "gene", "700", "800", ".", "+", ".", "ID=d") +
		gffLine("chr1", "test", "gene", "900", "950")

	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, content, false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	for i := 0; i < 4; i++ {
		if _, err := file.Next(); err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
	}
	_, err = file.Next()
	if _, ok := err.(*MalformedRecordError); !ok {
		t.Errorf("Wrong error type: got %T (%v)", err, err)
	}
}

func TestSpan(t *testing.T) {
	content := testContent()
	dir, err := ioutil.TempDir("", "gff")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	file, err := Open(writeTestFile(t, dir, content, false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	chunk, count, err := file.Span("chr1", 250, 650)
	if err != nil {
		t.Fatalf("Span failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Wrong count: got %d, want 2", count)
	}
	got := content[chunk.Start:chunk.End]
	if !strings.HasPrefix(got, "chr1\ttest\texon\t300") {
		t.Errorf("Span starts at the wrong line: %q", got)
	}
	if !strings.Contains(got, "\t500\t600\t") || strings.Contains(got, "\t700\t800\t") {
		t.Errorf("Span covers the wrong records: %q", got)
	}

	// Empty region: a gap between records.
	chunk, count, err = file.Span("chr1", 201, 299)
	if err != nil {
		t.Fatalf("Span failed: %v", err)
	}
	if count != 0 || chunk != (Chunk{}) {
		t.Errorf("Expected empty span, got %v with %d records", chunk, count)
	}
}
