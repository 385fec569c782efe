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

import (
	"fmt"
	"math"
	"sync"
)

const (
	// maxLookupScale bounds the lookup variant: the linear table has
	// 2^(scale+1) entries and is addressed with 32-bit indexes.
	maxLookupScale int32 = 30

	// Tables for the scales the auto-select policy hands to the
	// lookup variant are shared process-wide.
	minStaticLookupScale int32 = 3
	maxStaticLookupScale int32 = 6
)

// lookupTable precomputes the sub-bucket partition of [1, 2) at one
// scale. logBucketEnd[j] holds the significand of the exclusive end of
// log sub-bucket j; the last entry is 1<<SignificandWidth, i.e. 2.0.
// logBucketIndex[k] holds the log sub-bucket in which linear
// sub-bucket k starts.
type lookupTable struct {
	logBucketEnd   []uint64
	logBucketIndex []int32

	// linearShift converts a significand to its linear sub-bucket.
	linearShift uint
}

var (
	staticTables [maxStaticLookupScale - minStaticLookupScale + 1]*lookupTable
	staticOnce   [maxStaticLookupScale - minStaticLookupScale + 1]sync.Once
)

func lookupTableForScale(scale int32) *lookupTable {
	if scale < minStaticLookupScale || scale > maxStaticLookupScale {
		return newLookupTable(scale)
	}
	i := scale - minStaticLookupScale
	staticOnce[i].Do(func() {
		staticTables[i] = newLookupTable(scale)
	})
	return staticTables[i]
}

func newLookupTable(scale int32) *lookupTable {
	count := int64(1) << scale
	inverseScale := math.Ldexp(1, -int(scale))
	t := &lookupTable{
		logBucketEnd:   make([]uint64, count),
		logBucketIndex: make([]int32, 1<<(scale+1)),
		linearShift:    uint(SignificandWidth - (scale + 1)),
	}

	for j := int64(0); j < count-1; j++ {
		t.logBucketEnd[j] = boundarySignificand(j+1, inverseScale)
	}
	t.logBucketEnd[count-1] = 1 << SignificandWidth

	// A linear sub-bucket overlaps at most two log sub-buckets: the
	// linear width must stay below the narrowest (first) log width.
	if uint64(1)<<t.linearShift >= t.logBucketEnd[0] {
		panic("indexer: linear sub-bucket wider than first log sub-bucket")
	}

	j := int64(0)
	for k := range t.logBucketIndex {
		linearStart := uint64(k) << t.linearShift
		for j+1 < count && t.logBucketEnd[j] <= linearStart {
			j++
		}
		t.logBucketIndex[k] = int32(j)
	}
	return t
}

// SubBucketLookupIndexer resolves the sub-bucket with two table reads
// instead of a logarithm. Its boundaries are identical to the
// SubBucketLogIndexer's at the same scale.
type SubBucketLookupIndexer struct {
	subBucketIndexer
	table *lookupTable
}

var _ Indexer = (*SubBucketLookupIndexer)(nil)

// NewSubBucketLookupIndexer returns a SubBucketLookupIndexer at the
// given scale, which must be in [1, 30]. Tables for scales 3 through 6
// are built once and shared; other scales build a table per indexer.
func NewSubBucketLookupIndexer(scale int32) (*SubBucketLookupIndexer, error) {
	base, err := newSubBucketIndexer(scale)
	if err != nil {
		return nil, err
	}
	if scale > maxLookupScale {
		return nil, fmt.Errorf("%w: lookup indexer requires scale <= %d, got %d",
			ErrInvalidConfiguration, maxLookupScale, scale)
	}
	return &SubBucketLookupIndexer{
		subBucketIndexer: base,
		table:            lookupTableForScale(scale),
	}, nil
}

func (x *SubBucketLookupIndexer) BucketIndex(value float64) int64 {
	exponent, significand := normalizedParts(value)
	return x.compose(exponent, x.subBucketIndex(significand))
}

func (x *SubBucketLookupIndexer) subBucketIndex(significand uint64) int64 {
	j := int64(x.table.logBucketIndex[significand>>x.table.linearShift])
	if significand >= x.table.logBucketEnd[j] {
		return j + 1
	}
	return j
}

func (x *SubBucketLookupIndexer) startSignificand(sub int64) uint64 {
	if sub == 0 {
		return 0
	}
	return x.table.logBucketEnd[sub-1]
}

func (x *SubBucketLookupIndexer) BucketStart(index int64) float64 {
	return x.start(index, x.startSignificand)
}

func (x *SubBucketLookupIndexer) BucketEnd(index int64) float64 {
	return bucketEnd(x, index)
}
