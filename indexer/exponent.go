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
	"math/bits"
)

// ExponentIndexer serves scales at or below zero, where a bucket spans
// one or more powers of two. It works purely on the bit representation
// and is therefore free of floating-point error.
type ExponentIndexer struct {
	indexerBase
}

var _ Indexer = (*ExponentIndexer)(nil)

// NewExponentIndexer returns an ExponentIndexer at the given scale,
// which must be at or below zero.
func NewExponentIndexer(scale int32) (*ExponentIndexer, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	if scale > 0 {
		return nil, fmt.Errorf("%w: exponent indexer requires scale <= 0, got %d",
			ErrInvalidConfiguration, scale)
	}
	return &ExponentIndexer{indexerBase: newIndexerBase(scale)}, nil
}

func (x *ExponentIndexer) BucketIndex(value float64) int64 {
	// The arithmetic shift rounds negative exponents toward the more
	// negative index, e.g. -1 >> 1 == -1.
	return floorLog2(value) >> -x.scale
}

// floorLog2 returns the unbiased exponent of a positive finite value,
// normalizing subnormals by their leading-zero count.
func floorLog2(value float64) int64 {
	if be := BiasedExponent(value); be != 0 {
		return int64(be) - ExponentBias
	}
	return int64(bits.Len64(Significand(value))) - 1 + int64(MinExponent)
}

func (x *ExponentIndexer) BucketStart(index int64) float64 {
	exponent := index << -x.scale
	if exponent < int64(MinNormalExponent) {
		// Subnormal range: no significand bits to set.
		return math.Ldexp(1, int(exponent))
	}
	return Compose(0, int32(exponent)+ExponentBias, 0)
}

func (x *ExponentIndexer) BucketEnd(index int64) float64 {
	return bucketEnd(x, index)
}
