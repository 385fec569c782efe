// Copyright New Relic Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package indexer // import "github.com/newrelic-experimental/newrelic-sketch-go/indexer"

import "fmt"

// Policy selects an indexer variant per scale. Its numeric value is
// the wire code used in serialized sketches.
type Policy uint8

const (
	// PolicyLog always uses the LogIndexer.
	PolicyLog Policy = iota

	// PolicySubBucketLog uses the SubBucketLogIndexer at positive
	// scales and the ExponentIndexer otherwise.
	PolicySubBucketLog

	// PolicySubBucketLookup uses the SubBucketLookupIndexer at
	// positive scales and the ExponentIndexer otherwise.
	PolicySubBucketLookup

	// PolicyAuto picks the cheapest accurate variant: lookup tables
	// for scales 1 through 6, the sub-bucket logarithm above, and
	// pure exponent extraction at or below zero.
	PolicyAuto
)

// Valid reports whether p is a known policy code.
func (p Policy) Valid() bool { return p <= PolicyAuto }

func (p Policy) String() string {
	switch p {
	case PolicyLog:
		return "log"
	case PolicySubBucketLog:
		return "subBucketLog"
	case PolicySubBucketLookup:
		return "subBucketLookup"
	case PolicyAuto:
		return "auto"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// NewIndexer returns the indexer the policy selects for the scale.
func (p Policy) NewIndexer(scale int32) (Indexer, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	switch p {
	case PolicyLog:
		return NewLogIndexer(scale)
	case PolicySubBucketLog:
		if scale <= 0 {
			return NewExponentIndexer(scale)
		}
		return NewSubBucketLogIndexer(scale)
	case PolicySubBucketLookup:
		if scale <= 0 {
			return NewExponentIndexer(scale)
		}
		return NewSubBucketLookupIndexer(scale)
	case PolicyAuto:
		switch {
		case scale > maxStaticLookupScale:
			return NewSubBucketLogIndexer(scale)
		case scale >= 1:
			return NewSubBucketLookupIndexer(scale)
		default:
			return NewExponentIndexer(scale)
		}
	}
	return nil, fmt.Errorf("%w: unknown indexer policy %d", ErrInvalidConfiguration, uint8(p))
}
