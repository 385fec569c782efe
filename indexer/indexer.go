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

// Package indexer maps finite float64 values to scaled base-2
// exponential bucket indexes. At scale s the bucket base is
// 2^(2^-s), and bucket i covers [base^i, base^(i+1)).
package indexer // import "github.com/newrelic-experimental/newrelic-sketch-go/indexer"

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinScale is the lowest supported scale. Below it a single bucket
	// would span more than half of the float64 range.
	MinScale int32 = -11

	// MaxScale is the highest supported scale. Beyond 52 adjacent
	// bucket bounds collapse to the same float64.
	MaxScale int32 = 52
)

// ErrInvalidConfiguration is returned when an indexer is constructed
// with a scale outside the range the variant supports.
var ErrInvalidConfiguration = errors.New("indexer: invalid configuration")

// Indexer converts between positive finite float64 values and bucket
// indexes at a fixed scale. The value's sign is the caller's concern;
// zero is not a valid input.
type Indexer interface {
	// BucketIndex returns the index of the bucket containing value.
	BucketIndex(value float64) int64

	// BucketStart returns the inclusive lower bound of bucket index.
	BucketStart(index int64) float64

	// BucketEnd returns the exclusive upper bound of bucket index,
	// or math.MaxFloat64 at MaxIndex.
	BucketEnd(index int64) float64

	// Base returns 2^(2^-scale), the ratio of adjacent bucket bounds.
	Base() float64

	// Scale returns the indexer's scale.
	Scale() int32

	// MaxIndex returns the index of the bucket holding math.MaxFloat64.
	MaxIndex() int64

	// MinIndexNormal returns the index of the bucket holding the
	// smallest normal number.
	MinIndexNormal() int64

	// MinIndex returns the index of the bucket holding the smallest
	// subnormal number.
	MinIndex() int64
}

// MaxIndexForScale returns the bucket index of math.MaxFloat64.
func MaxIndexForScale(scale int32) int64 {
	if scale > 0 {
		return int64(MaxNormalExponent)<<scale | (1<<scale - 1)
	}
	return int64(MaxNormalExponent) >> -scale
}

// MinIndexNormalForScale returns the bucket index of 0x1p-1022. The
// arithmetic shift rounds toward the more negative index.
func MinIndexNormalForScale(scale int32) int64 {
	if scale > 0 {
		return int64(MinNormalExponent) << scale
	}
	return int64(MinNormalExponent) >> -scale
}

// MinIndexForScale returns the bucket index of 0x1p-1074, extending
// MinIndexNormalForScale down through the subnormal range.
func MinIndexForScale(scale int32) int64 {
	if scale > 0 {
		return int64(MinExponent) << scale
	}
	return int64(MinExponent) >> -scale
}

func checkScale(scale int32) error {
	if scale < MinScale || scale > MaxScale {
		return fmt.Errorf("%w: scale %d outside [%d, %d]",
			ErrInvalidConfiguration, scale, MinScale, MaxScale)
	}
	return nil
}

// indexerBase carries the per-scale state shared by all variants.
type indexerBase struct {
	scale int32
	base  float64
}

func newIndexerBase(scale int32) indexerBase {
	return indexerBase{
		scale: scale,
		base:  math.Exp2(math.Ldexp(1, -int(scale))),
	}
}

func (b indexerBase) Scale() int32 { return b.scale }

func (b indexerBase) Base() float64 { return b.base }

func (b indexerBase) MaxIndex() int64 { return MaxIndexForScale(b.scale) }

func (b indexerBase) MinIndexNormal() int64 { return MinIndexNormalForScale(b.scale) }

func (b indexerBase) MinIndex() int64 { return MinIndexForScale(b.scale) }

// scalePower returns base(scale)^index. The index is split into a
// power-of-two exponent and a sub-bucket remainder so that the
// intermediate exponent never loses precision; base itself is never
// materialized (it is within an ulp of 1 at high scales).
func scalePower(scale int32, index int64) float64 {
	if scale <= 0 {
		return math.Ldexp(1, int(index<<-scale))
	}
	exponent := index >> scale
	sub := index - exponent<<scale
	fraction := math.Exp2(float64(sub) * math.Ldexp(1, -int(scale)))
	return math.Ldexp(fraction, int(exponent))
}

// bucketEnd implements BucketEnd on top of BucketStart, saturating at
// math.MaxFloat64 in the top bucket.
func bucketEnd(x Indexer, index int64) float64 {
	if index >= x.MaxIndex() {
		return math.MaxFloat64
	}
	return x.BucketStart(index + 1)
}
