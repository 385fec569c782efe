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

import "sync"

// ConcurrentSketch serializes every operation on an inner sketch
// behind one mutex. The critical sections are tens of nanoseconds;
// finer-grained locking loses to the acquire cost.
//
// Merge, Subtract, and Equals lock only the receiver: a shared peer
// must be serialized by the caller.
type ConcurrentSketch struct {
	mu    sync.Mutex
	inner Sketch
}

var _ Sketch = (*ConcurrentSketch)(nil)

// NewConcurrentSketch wraps inner, which must not be used directly
// afterwards.
func NewConcurrentSketch(inner Sketch) *ConcurrentSketch {
	return &ConcurrentSketch{inner: inner}
}

// unwrap returns the peer's inner sketch so that merge and subtract
// operate on matching variants.
func unwrap(s Sketch) Sketch {
	if c, ok := s.(*ConcurrentSketch); ok {
		return c.inner
	}
	return s
}

// Insert records one instance of value.
func (c *ConcurrentSketch) Insert(value float64) { c.InsertN(value, 1) }

// InsertN records value with the given number of instances.
func (c *ConcurrentSketch) InsertN(value float64, instances uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.InsertN(value, instances)
}

// Merge adds the contents of another sketch.
func (c *ConcurrentSketch) Merge(other Sketch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Merge(unwrap(other))
}

// Subtract removes the contents of another sketch.
func (c *ConcurrentSketch) Subtract(other Sketch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Subtract(unwrap(other))
}

// Count returns the number of recorded instances.
func (c *ConcurrentSketch) Count() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Count()
}

// Sum returns the sum of recorded values.
func (c *ConcurrentSketch) Sum() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Sum()
}

// Min returns the smallest recorded value, or NaN when empty.
func (c *ConcurrentSketch) Min() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Min()
}

// Max returns the largest recorded value, or NaN when empty.
func (c *ConcurrentSketch) Max() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Max()
}

// RelativeError returns the inner sketch's relative error bound.
func (c *ConcurrentSketch) RelativeError() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.RelativeError()
}

// Buckets materializes the bucket list under the lock and returns an
// iterator over the snapshot. Use Do to walk live buckets under the
// lock instead.
func (c *ConcurrentSketch) Buckets() BucketIterator {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buckets []Bucket
	for it := c.inner.Buckets(); it.Next(); {
		buckets = append(buckets, it.At())
	}
	return &sliceBucketIterator{buckets: buckets}
}

// Do runs f on the inner sketch with the lock held, for callers that
// need a multi-step view. f must not retain the sketch.
func (c *ConcurrentSketch) Do(f func(Sketch)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c.inner)
}

// Percentiles sorts thresholds in place and returns the value at each
// percentile, all under one lock acquisition.
func (c *ConcurrentSketch) Percentiles(thresholds []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return percentiles(c.inner, thresholds)
}

// DeepCopy returns a new wrapper around a clone of the inner sketch.
func (c *ConcurrentSketch) DeepCopy() Sketch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewConcurrentSketch(c.inner.DeepCopy())
}

// Equals reports logical equality of the inner sketches.
func (c *ConcurrentSketch) Equals(other Sketch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Equals(unwrap(other))
}

func (c *ConcurrentSketch) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.String()
}
