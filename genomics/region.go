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

// Package genomics contains definitions related to genomic data.
package genomics

import "fmt"

// Region defines a region of genomic interest.
type Region struct {
	// Sequence names the chromosome or scaffold to match.
	Sequence string
	// Start and End bound the region in 1-indexed base pairs, with End
	// exclusive.  A zero Start means "from the first annotated position"
	// and a zero End means "to the end of the sequence".
	Start, End int64
}

func (region Region) String() string {
	return fmt.Sprintf("[sequence:%s, start:%d, end:%d]", region.Sequence, region.Start, region.End)
}
