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
)

// subBucketIndexer is shared by the positive-scale variants. They
// split [1, 2) into 2^scale log-spaced sub-buckets; the full bucket
// index concatenates the power-of-two exponent with the sub-bucket
// index. The variants differ only in the significand to sub-bucket
// mapping.
type subBucketIndexer struct {
	indexerBase

	// subBucketCount is 2^scale.
	subBucketCount int64
}

func newSubBucketIndexer(scale int32) (subBucketIndexer, error) {
	if err := checkScale(scale); err != nil {
		return subBucketIndexer{}, err
	}
	if scale <= 0 {
		return subBucketIndexer{}, fmt.Errorf(
			"%w: sub-bucket indexer requires scale > 0, got %d",
			ErrInvalidConfiguration, scale)
	}
	return subBucketIndexer{
		indexerBase:    newIndexerBase(scale),
		subBucketCount: 1 << scale,
	}, nil
}

// compose concatenates a power-of-two exponent and a sub-bucket index.
func (b subBucketIndexer) compose(exponent, sub int64) int64 {
	return exponent<<b.scale + sub
}

// start rebuilds the bucket's lower bound from the variant's start
// significand. Exponents below the normal range round to subnormals.
func (b subBucketIndexer) start(index int64, startSignificand func(int64) uint64) float64 {
	exponent := index >> b.scale
	sub := index - exponent<<b.scale
	return math.Ldexp(ComposeOneToTwo(startSignificand(sub)), int(exponent))
}

// SubBucketLogIndexer maps the significand through the natural
// logarithm of the [1, 2) remainder only, keeping the index error
// scale-invariant all the way up to MaxScale.
type SubBucketLogIndexer struct {
	subBucketIndexer

	// scaleFactor is 2^scale / ln(2).
	scaleFactor float64

	// inverseScale is 2^-scale.
	inverseScale float64
}

var _ Indexer = (*SubBucketLogIndexer)(nil)

// NewSubBucketLogIndexer returns a SubBucketLogIndexer at the given
// scale, which must be positive.
func NewSubBucketLogIndexer(scale int32) (*SubBucketLogIndexer, error) {
	base, err := newSubBucketIndexer(scale)
	if err != nil {
		return nil, err
	}
	return &SubBucketLogIndexer{
		subBucketIndexer: base,
		scaleFactor:      math.Ldexp(math.Log2E, int(scale)),
		inverseScale:     math.Ldexp(1, -int(scale)),
	}, nil
}

func (x *SubBucketLogIndexer) BucketIndex(value float64) int64 {
	exponent, significand := normalizedParts(value)
	return x.compose(exponent, x.subBucketIndex(significand))
}

func (x *SubBucketLogIndexer) subBucketIndex(significand uint64) int64 {
	sub := int64(math.Floor(math.Log(ComposeOneToTwo(significand)) * x.scaleFactor))
	if sub < 0 {
		sub = 0
	} else if sub >= x.subBucketCount {
		sub = x.subBucketCount - 1
	}

	// Settle rounding against the boundary significands BucketStart
	// reports, so a value is never placed outside its bucket bounds.
	for sub+1 < x.subBucketCount && x.subBucketStartSignificand(sub+1) <= significand {
		sub++
	}
	for sub > 0 && x.subBucketStartSignificand(sub) > significand {
		sub--
	}
	return sub
}

// subBucketStartSignificand returns the significand field of
// 2^(sub/2^scale), the lower bound of the sub-bucket in [1, 2).
func (x *SubBucketLogIndexer) subBucketStartSignificand(sub int64) uint64 {
	return boundarySignificand(sub, x.inverseScale)
}

// boundarySignificand pins the boundary below 2.0: at the highest
// scales the exponential of the top sub-buckets can round up to 2.0
// itself, which would fold their significand back to 1.0.
func boundarySignificand(sub int64, inverseScale float64) uint64 {
	f := math.Exp2(float64(sub) * inverseScale)
	if f >= 2 {
		return SignificandMask
	}
	return Significand(f)
}

func (x *SubBucketLogIndexer) BucketStart(index int64) float64 {
	return x.start(index, x.subBucketStartSignificand)
}

func (x *SubBucketLogIndexer) BucketEnd(index int64) float64 {
	return bucketEnd(x, index)
}
