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

// Defaults shared by the sketch constructors.
const (
	// DefaultMaxBuckets bounds the bucket window of a sketch, or of
	// each side of a ComboSketch.
	DefaultMaxBuckets = 320

	// DefaultInitialScale is the resolution a sketch starts at before
	// any automatic downscaling.
	DefaultInitialScale int32 = 12
)

// Sketch is the surface shared by SimpleSketch, ComboSketch, and
// ConcurrentSketch.
type Sketch interface {
	// Insert records one instance of value. NaN and ±Inf are ignored.
	Insert(value float64)

	// InsertN records value with the given number of instances.
	InsertN(value float64, instances uint64)

	// Merge adds the contents of another sketch of the same variant
	// and polarity. The peer is not mutated.
	Merge(other Sketch) error

	// Subtract removes the contents of another sketch, preserving the
	// count delta even when bucket boundaries disagree by one.
	Subtract(other Sketch) error

	// Count returns the number of recorded instances.
	Count() uint64

	// Sum returns the sum of recorded values.
	Sum() float64

	// Min returns the smallest recorded value, or NaN when empty.
	Min() float64

	// Max returns the largest recorded value, or NaN when empty.
	Max() float64

	// RelativeError returns (base-1)/(base+1), the worst-case relative
	// error of a reported percentile.
	RelativeError() float64

	// Buckets iterates the occupied buckets in the variant's order.
	Buckets() BucketIterator

	// Percentiles sorts thresholds in place and returns the value at
	// each percentile in [0, 100], NaN for every entry when empty.
	Percentiles(thresholds []float64) []float64

	// DeepCopy returns an independent clone.
	DeepCopy() Sketch

	// Equals reports logical equality: same variant, polarity, scale,
	// policy, scalars (NaN min/max compare equal), and bucket counts.
	Equals(other Sketch) bool

	fmt.Stringer
}

// Bucket is one entry of a bucket iteration. End is exclusive except
// for the zero bucket, the summary buckets, and the bucket holding the
// recorded maximum.
type Bucket struct {
	Start float64
	End   float64
	Count uint64
}

// BucketIterator walks buckets in a single pass. At is valid until the
// next call to Next.
type BucketIterator interface {
	Next() bool
	At() Bucket
}

// sliceBucketIterator replays a materialized bucket list.
type sliceBucketIterator struct {
	buckets []Bucket
	pos     int
}

func (it *sliceBucketIterator) Next() bool {
	if it.pos >= len(it.buckets) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceBucketIterator) At() Bucket { return it.buckets[it.pos-1] }

type config struct {
	maxBuckets   int
	initialScale int32
	policy       indexer.Policy
}

func newConfig(opts []Option) config {
	c := config{
		maxBuckets:   DefaultMaxBuckets,
		initialScale: DefaultInitialScale,
		policy:       indexer.PolicyAuto,
	}
	for _, o := range opts {
		c = o.apply(c)
	}
	return c
}

func (c config) validate() error {
	if c.maxBuckets <= 0 {
		return fmt.Errorf("%w: max buckets must be positive, got %d",
			ErrInvalidConfiguration, c.maxBuckets)
	}
	if c.initialScale < indexer.MinScale || c.initialScale > indexer.MaxScale {
		return fmt.Errorf("%w: initial scale %d outside [%d, %d]",
			ErrInvalidConfiguration, c.initialScale, indexer.MinScale, indexer.MaxScale)
	}
	if !c.policy.Valid() {
		return fmt.Errorf("%w: unknown indexer policy %d",
			ErrInvalidConfiguration, uint8(c.policy))
	}
	return nil
}

// Option configures a sketch constructor.
type Option interface {
	apply(config) config
}

type optionFunc func(config) config

func (f optionFunc) apply(c config) config { return f(c) }

// WithMaxBuckets sets the bucket budget. For a ComboSketch the budget
// applies to each side.
func WithMaxBuckets(n int) Option {
	return optionFunc(func(c config) config {
		c.maxBuckets = n
		return c
	})
}

// WithInitialScale sets the starting scale.
func WithInitialScale(scale int32) Option {
	return optionFunc(func(c config) config {
		c.initialScale = scale
		return c
	})
}

// WithIndexerPolicy sets the indexer selection policy.
func WithIndexerPolicy(p indexer.Policy) Option {
	return optionFunc(func(c config) config {
		c.policy = p
		return c
	})
}

// combineMin and combineMax merge extrema with NaN treated as absent.
func combineMin(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Min(a, b)
}

func combineMax(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}
	if math.IsNaN(b) {
		return a
	}
	return math.Max(a, b)
}

func equalOrBothNaN(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func subtractCapped(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
