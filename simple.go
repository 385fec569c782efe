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

package nrsketch // import "github.com/newrelic-experimental/newrelic-sketch-go"

import (
	"fmt"
	"math"

	"github.com/newrelic-experimental/newrelic-sketch-go/indexer"
)

// SimpleSketch is an exponential histogram indexing one sign of the
// number line. Samples of the other sign and zeros are tracked in
// scalar counters only. Not safe for concurrent use; wrap in a
// ConcurrentSketch when sharing across goroutines.
type SimpleSketch struct {
	maxBuckets      int
	indexIsPositive bool
	policy          indexer.Policy

	scale   int32
	indexer indexer.Indexer
	buckets *WindowedCounterArray

	totalCount        uint64
	countForZero      uint64
	countForWrongSign uint64
	min, max          float64
	sum               float64
}

var _ Sketch = (*SimpleSketch)(nil)

// NewSimpleSketch returns a positive-indexed sketch: negative samples
// only contribute to the scalar aggregates.
func NewSimpleSketch(opts ...Option) (*SimpleSketch, error) {
	return newSimpleSketch(newConfig(opts), true)
}

// NewNegativeSimpleSketch returns a negative-indexed sketch, bucketing
// negative samples by their magnitude.
func NewNegativeSimpleSketch(opts ...Option) (*SimpleSketch, error) {
	return newSimpleSketch(newConfig(opts), false)
}

func newSimpleSketch(c config, indexIsPositive bool) (*SimpleSketch, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	ix, err := c.policy.NewIndexer(c.initialScale)
	if err != nil {
		return nil, err
	}
	return &SimpleSketch{
		maxBuckets:      c.maxBuckets,
		indexIsPositive: indexIsPositive,
		policy:          c.policy,
		scale:           c.initialScale,
		indexer:         ix,
		buckets:         NewWindowedCounterArray(c.maxBuckets),
		min:             math.NaN(),
		max:             math.NaN(),
	}, nil
}

// Insert records one instance of value.
func (s *SimpleSketch) Insert(value float64) { s.InsertN(value, 1) }

// InsertN records value with the given number of instances. NaN and
// ±Inf are dropped; zeros and subnormals land in the zero bucket;
// samples of the non-indexed sign only update the scalar aggregates.
func (s *SimpleSketch) InsertN(value float64, instances uint64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	if math.IsNaN(s.min) || value < s.min {
		s.min = value
	}
	if math.IsNaN(s.max) || value > s.max {
		s.max = value
	}
	s.sum += value * float64(instances)
	s.totalCount += instances

	if indexer.IsSubnormalOrZero(value) {
		s.countForZero += instances
		return
	}
	if (value > 0) != s.indexIsPositive {
		s.countForWrongSign += instances
		return
	}

	index := s.indexer.BucketIndex(math.Abs(value))
	if s.buckets.Increment(index, instances) {
		return
	}
	shift := s.scaleReductionFor(index)
	if maxShift := s.scale - indexer.MinScale; shift > maxShift {
		shift = maxShift
	}
	if shift <= 0 {
		Handle(fmt.Errorf("%w: bucket window over budget at the minimum scale", ErrInternal))
		return
	}
	s.downscale(shift)
	if !s.buckets.Increment(index>>shift, instances) {
		Handle(fmt.Errorf("%w: bucket window still over budget after downscale by %d",
			ErrInternal, shift))
	}
}

// scaleReductionFor returns the smallest reduction k >= 1 that fits
// the occupied window, extended to cover index, into maxBuckets. A
// window straddling index zero with a budget of one bucket can never
// fit, so the loop is bounded by the index width.
func (s *SimpleSketch) scaleReductionFor(index int64) int32 {
	low, high := index, index
	if !s.buckets.IsEmpty() {
		low = min(low, s.buckets.IndexStart())
		high = max(high, s.buckets.IndexEnd())
	}
	var k int32
	for (k == 0 || high-low+1 > int64(s.maxBuckets)) && k < 64 {
		low >>= 1
		high >>= 1
		k++
	}
	return k
}

// downscale lowers the scale by shift, folding 2^shift old buckets
// into each new one. Every count moves into exactly one new bucket.
func (s *SimpleSketch) downscale(shift int32) {
	if shift <= 0 {
		return
	}
	newScale := s.scale - shift
	if newScale < indexer.MinScale {
		newScale = indexer.MinScale
		shift = s.scale - newScale
		if shift <= 0 {
			return
		}
	}
	ix, err := s.policy.NewIndexer(newScale)
	if err != nil {
		Handle(fmt.Errorf("%w: downscale to scale %d: %v", ErrInternal, newScale, err))
		return
	}
	if !s.buckets.IsEmpty() {
		fresh := NewWindowedCounterArray(s.maxBuckets)
		for i := s.buckets.IndexStart(); i <= s.buckets.IndexEnd(); i++ {
			if c := s.buckets.Get(i); c != 0 {
				fresh.Increment(i>>shift, c)
			}
		}
		s.buckets = fresh
	}
	s.indexer = ix
	s.scale = newScale
}

// Merge adds the contents of another SimpleSketch of the same
// polarity, downscaling the receiver until the union window fits.
func (s *SimpleSketch) Merge(other Sketch) error {
	o, ok := other.(*SimpleSketch)
	if !ok {
		return fmt.Errorf("%w: cannot merge %T into %T", ErrIncompatibleOperation, other, s)
	}
	return s.mergeSimple(o)
}

func (s *SimpleSketch) mergeSimple(o *SimpleSketch) error {
	if s.indexIsPositive != o.indexIsPositive {
		return fmt.Errorf("%w: sketches index different polarities", ErrIncompatibleOperation)
	}
	if !o.buckets.IsEmpty() {
		common, _, _, err := s.commonScaleWith(o)
		if err != nil {
			return err
		}
		s.downscale(s.scale - common)
		shift := o.scale - common
		for i := o.buckets.IndexStart(); i <= o.buckets.IndexEnd(); i++ {
			if c := o.buckets.Get(i); c != 0 {
				if !s.buckets.Increment(i>>shift, c) {
					return fmt.Errorf("%w: union window over budget during merge", ErrInternal)
				}
			}
		}
	}
	s.totalCount += o.totalCount
	s.countForZero += o.countForZero
	s.countForWrongSign += o.countForWrongSign
	s.sum += o.sum
	s.min = combineMin(s.min, o.min)
	s.max = combineMax(s.max, o.max)
	return nil
}

// commonScaleWith returns the highest scale at which the union of both
// occupied windows fits the receiver's budget, along with the union
// bounds at that scale. The peer must be non-empty.
func (s *SimpleSketch) commonScaleWith(o *SimpleSketch) (scale int32, low, high int64, err error) {
	scale = min(s.scale, o.scale)
	low = o.buckets.IndexStart() >> (o.scale - scale)
	high = o.buckets.IndexEnd() >> (o.scale - scale)
	if !s.buckets.IsEmpty() {
		low = min(low, s.buckets.IndexStart()>>(s.scale-scale))
		high = max(high, s.buckets.IndexEnd()>>(s.scale-scale))
	}
	for high-low+1 > int64(s.maxBuckets) {
		if scale == indexer.MinScale {
			return 0, 0, 0, fmt.Errorf(
				"%w: union window does not fit %d buckets at the minimum scale",
				ErrInternal, s.maxBuckets)
		}
		low >>= 1
		high >>= 1
		scale--
	}
	return scale, low, high, nil
}

// Subtract removes the contents of another SimpleSketch of the same
// polarity. When boundary rounding pushed a peer count into a bucket
// the receiver has no count for, the deficit is borrowed from the
// nearest non-empty bucket, higher indexes first, so that the bucket
// total still matches the count delta.
func (s *SimpleSketch) Subtract(other Sketch) error {
	o, ok := other.(*SimpleSketch)
	if !ok {
		return fmt.Errorf("%w: cannot subtract %T from %T", ErrIncompatibleOperation, other, s)
	}
	return s.subtractSimple(o)
}

func (s *SimpleSketch) subtractSimple(o *SimpleSketch) error {
	if s.indexIsPositive != o.indexIsPositive {
		return fmt.Errorf("%w: sketches index different polarities", ErrIncompatibleOperation)
	}
	if !o.buckets.IsEmpty() {
		common, low, high, err := s.commonScaleWith(o)
		if err != nil {
			return err
		}
		s.downscale(s.scale - common)

		counts := make([]int64, high-low+1)
		if !s.buckets.IsEmpty() {
			for i := s.buckets.IndexStart(); i <= s.buckets.IndexEnd(); i++ {
				counts[i-low] = int64(s.buckets.Get(i))
			}
		}
		shift := o.scale - common
		for i := o.buckets.IndexStart(); i <= o.buckets.IndexEnd(); i++ {
			counts[(i>>shift)-low] -= int64(o.buckets.Get(i))
		}
		borrowDeficits(counts)

		fresh := NewWindowedCounterArray(s.maxBuckets)
		for i, c := range counts {
			if c > 0 {
				fresh.Increment(low+int64(i), uint64(c))
			}
		}
		s.buckets = fresh
	}
	s.totalCount = subtractCapped(s.totalCount, o.totalCount)
	s.countForZero = subtractCapped(s.countForZero, o.countForZero)
	s.countForWrongSign = subtractCapped(s.countForWrongSign, o.countForWrongSign)
	s.sum -= o.sum
	if s.totalCount == 0 {
		s.min, s.max = math.NaN(), math.NaN()
	}
	return nil
}

// borrowDeficits zeroes negative entries, taking the shortfall from
// the nearest positive entries, higher indexes first.
func borrowDeficits(counts []int64) {
	for i, c := range counts {
		if c >= 0 {
			continue
		}
		deficit := -c
		counts[i] = 0
		for j := i + 1; j < len(counts) && deficit > 0; j++ {
			taken := min(deficit, counts[j])
			if taken > 0 {
				counts[j] -= taken
				deficit -= taken
			}
		}
		for j := i - 1; j >= 0 && deficit > 0; j-- {
			taken := min(deficit, counts[j])
			if taken > 0 {
				counts[j] -= taken
				deficit -= taken
			}
		}
	}
}

// DeepCopy returns an independent clone. The indexer is shared: it is
// immutable and keyed only by scale.
func (s *SimpleSketch) DeepCopy() Sketch {
	c := *s
	c.buckets = s.buckets.DeepCopy()
	return &c
}

// Equals reports logical equality with another SimpleSketch.
func (s *SimpleSketch) Equals(other Sketch) bool {
	o, ok := other.(*SimpleSketch)
	if !ok {
		return false
	}
	return s.indexIsPositive == o.indexIsPositive &&
		s.scale == o.scale &&
		s.policy == o.policy &&
		s.totalCount == o.totalCount &&
		s.countForZero == o.countForZero &&
		s.countForWrongSign == o.countForWrongSign &&
		equalOrBothNaN(s.min, o.min) &&
		equalOrBothNaN(s.max, o.max) &&
		math.Float64bits(s.sum) == math.Float64bits(o.sum) &&
		s.buckets.Equals(o.buckets)
}

// Count returns the number of recorded instances.
func (s *SimpleSketch) Count() uint64 { return s.totalCount }

// Sum returns the sum of recorded values.
func (s *SimpleSketch) Sum() float64 { return s.sum }

// Min returns the smallest recorded value, or NaN when empty.
func (s *SimpleSketch) Min() float64 { return s.min }

// Max returns the largest recorded value, or NaN when empty.
func (s *SimpleSketch) Max() float64 { return s.max }

// CountForZero returns the instances recorded as zero or subnormal.
func (s *SimpleSketch) CountForZero() uint64 { return s.countForZero }

// CountForWrongSign returns the instances whose sign is not indexed:
// negatives for a positive-indexed sketch and vice versa.
func (s *SimpleSketch) CountForWrongSign() uint64 { return s.countForWrongSign }

// IndexIsPositive reports which sign the sketch buckets.
func (s *SimpleSketch) IndexIsPositive() bool { return s.indexIsPositive }

// Scale returns the current scale.
func (s *SimpleSketch) Scale() int32 { return s.scale }

// MaxBuckets returns the bucket budget.
func (s *SimpleSketch) MaxBuckets() int { return s.maxBuckets }

// IndexerPolicy returns the configured indexer selection policy.
func (s *SimpleSketch) IndexerPolicy() indexer.Policy { return s.policy }

// BytesPerCounter returns the storage width of the bucket counters.
func (s *SimpleSketch) BytesPerCounter() int { return s.buckets.BytesPerCounter() }

// RelativeError returns (base-1)/(base+1) at the current scale.
func (s *SimpleSketch) RelativeError() float64 {
	base := s.indexer.Base()
	return (base - 1) / (base + 1)
}

// Percentiles sorts thresholds in place and returns the value at each
// percentile.
func (s *SimpleSketch) Percentiles(thresholds []float64) []float64 {
	return percentiles(s, thresholds)
}

func (s *SimpleSketch) String() string {
	return fmt.Sprintf(
		"SimpleSketch{count=%d, sum=%v, min=%v, max=%v, scale=%d, window=%d/%d}",
		s.totalCount, s.sum, s.min, s.max, s.scale, s.buckets.WindowSize(), s.maxBuckets)
}

// Iteration stages. Positive-indexed sketches walk summary, zero, then
// indexed buckets ascending; negative-indexed sketches walk indexed
// buckets descending (most negative first), zero, then summary.
const (
	stageSummary = iota
	stageZero
	stageIndexed
	stageDone
)

type simpleBucketIterator struct {
	s     *SimpleSketch
	stage int
	index int64
	cur   Bucket
}

// Buckets iterates the occupied buckets in value order.
func (s *SimpleSketch) Buckets() BucketIterator {
	if s.indexIsPositive {
		return &simpleBucketIterator{s: s, stage: stageSummary}
	}
	it := &simpleBucketIterator{s: s, stage: stageIndexed}
	if !s.buckets.IsEmpty() {
		it.index = s.buckets.IndexEnd()
	}
	return it
}

func (it *simpleBucketIterator) At() Bucket { return it.cur }

func (it *simpleBucketIterator) Next() bool {
	if it.s.indexIsPositive {
		return it.nextPositive()
	}
	return it.nextNegative()
}

func (it *simpleBucketIterator) nextPositive() bool {
	s := it.s
	for {
		switch it.stage {
		case stageSummary:
			it.stage = stageZero
			if s.countForWrongSign > 0 {
				it.cur = Bucket{Start: s.min, End: math.Min(0, s.max), Count: s.countForWrongSign}
				return true
			}
		case stageZero:
			it.stage = stageIndexed
			if !s.buckets.IsEmpty() {
				it.index = s.buckets.IndexStart()
			}
			if s.countForZero > 0 {
				it.cur = Bucket{Start: 0, End: 0, Count: s.countForZero}
				return true
			}
		case stageIndexed:
			w := s.buckets
			for ; !w.IsEmpty() && it.index <= w.IndexEnd(); it.index++ {
				c := w.Get(it.index)
				if c == 0 {
					continue
				}
				b := Bucket{
					Start: s.indexer.BucketStart(it.index),
					End:   s.indexer.BucketEnd(it.index),
					Count: c,
				}
				if it.index == w.IndexStart() && s.min > 0 {
					b.Start = s.min
				}
				if it.index == w.IndexEnd() {
					b.End = s.max
				}
				it.index++
				it.cur = b
				return true
			}
			it.stage = stageDone
		default:
			return false
		}
	}
}

func (it *simpleBucketIterator) nextNegative() bool {
	s := it.s
	for {
		switch it.stage {
		case stageIndexed:
			w := s.buckets
			for ; !w.IsEmpty() && it.index >= w.IndexStart(); it.index-- {
				c := w.Get(it.index)
				if c == 0 {
					continue
				}
				b := Bucket{
					Start: -s.indexer.BucketEnd(it.index),
					End:   -s.indexer.BucketStart(it.index),
					Count: c,
				}
				if it.index == w.IndexEnd() && s.min < 0 {
					b.Start = s.min
				}
				if it.index == w.IndexStart() && s.max < 0 {
					b.End = s.max
				}
				it.index--
				it.cur = b
				return true
			}
			it.stage = stageZero
		case stageZero:
			it.stage = stageSummary
			if s.countForZero > 0 {
				it.cur = Bucket{Start: 0, End: 0, Count: s.countForZero}
				return true
			}
		case stageSummary:
			it.stage = stageDone
			if s.countForWrongSign > 0 {
				it.cur = Bucket{Start: math.Max(0, s.min), End: s.max, Count: s.countForWrongSign}
				return true
			}
		default:
			return false
		}
	}
}
