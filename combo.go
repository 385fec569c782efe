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
	"strings"
)

// ComboSketch composes a negative-indexed and a positive-indexed
// SimpleSketch for full-range resolution. Children are created on the
// first insert of the relevant sign; a present negative child always
// precedes the positive child in iteration and serialization.
type ComboSketch struct {
	cfg config

	// sketches holds 0, 1, or 2 children, negative side first.
	sketches []*SimpleSketch
}

var _ Sketch = (*ComboSketch)(nil)

// NewComboSketch returns an empty combo sketch. WithMaxBuckets sets
// the budget of each side.
func NewComboSketch(opts ...Option) (*ComboSketch, error) {
	c := newConfig(opts)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &ComboSketch{cfg: c}, nil
}

// child returns the side for the polarity, creating it when asked.
func (c *ComboSketch) child(positive, create bool) *SimpleSketch {
	for _, h := range c.sketches {
		if h.indexIsPositive == positive {
			return h
		}
	}
	if !create {
		return nil
	}
	h, err := newSimpleSketch(c.cfg, positive)
	if err != nil {
		// The config was validated at construction.
		Handle(fmt.Errorf("%w: combo child construction: %v", ErrInternal, err))
		return nil
	}
	if positive {
		c.sketches = append(c.sketches, h)
	} else {
		c.sketches = append([]*SimpleSketch{h}, c.sketches...)
	}
	return h
}

// Insert records one instance of value.
func (c *ComboSketch) Insert(value float64) { c.InsertN(value, 1) }

// InsertN records value with the given number of instances. Zero goes
// to the positive side.
func (c *ComboSketch) InsertN(value float64, instances uint64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	h := c.child(value >= 0, true)
	if h != nil {
		h.InsertN(value, instances)
	}
}

// Merge adds the contents of another ComboSketch, child by child.
func (c *ComboSketch) Merge(other Sketch) error {
	o, ok := other.(*ComboSketch)
	if !ok {
		return fmt.Errorf("%w: cannot merge %T into %T", ErrIncompatibleOperation, other, c)
	}
	for _, oh := range o.sketches {
		h := c.child(oh.indexIsPositive, true)
		if h == nil {
			return fmt.Errorf("%w: combo child unavailable", ErrInternal)
		}
		if err := h.mergeSimple(oh); err != nil {
			return err
		}
	}
	return nil
}

// Subtract removes the contents of another ComboSketch, child by
// child.
func (c *ComboSketch) Subtract(other Sketch) error {
	o, ok := other.(*ComboSketch)
	if !ok {
		return fmt.Errorf("%w: cannot subtract %T from %T", ErrIncompatibleOperation, other, c)
	}
	for _, oh := range o.sketches {
		h := c.child(oh.indexIsPositive, true)
		if h == nil {
			return fmt.Errorf("%w: combo child unavailable", ErrInternal)
		}
		if err := h.subtractSimple(oh); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of recorded instances.
func (c *ComboSketch) Count() uint64 {
	var total uint64
	for _, h := range c.sketches {
		total += h.totalCount
	}
	return total
}

// Sum returns the sum of recorded values.
func (c *ComboSketch) Sum() float64 {
	var sum float64
	for _, h := range c.sketches {
		sum += h.sum
	}
	return sum
}

// Min returns the smallest recorded value, or NaN when empty.
func (c *ComboSketch) Min() float64 {
	m := math.NaN()
	for _, h := range c.sketches {
		m = combineMin(m, h.min)
	}
	return m
}

// Max returns the largest recorded value, or NaN when empty.
func (c *ComboSketch) Max() float64 {
	m := math.NaN()
	for _, h := range c.sketches {
		m = combineMax(m, h.max)
	}
	return m
}

// RelativeError returns the worse of the children's relative errors,
// zero before any insert.
func (c *ComboSketch) RelativeError() float64 {
	var e float64
	for _, h := range c.sketches {
		e = math.Max(e, h.RelativeError())
	}
	return e
}

// MaxBucketsPerSketch returns the bucket budget of each side.
func (c *ComboSketch) MaxBucketsPerSketch() int { return c.cfg.maxBuckets }

// Buckets iterates the children's buckets, negative side first, so
// buckets appear in ascending value order.
func (c *ComboSketch) Buckets() BucketIterator {
	its := make([]BucketIterator, 0, len(c.sketches))
	for _, h := range c.sketches {
		its = append(its, h.Buckets())
	}
	return &chainBucketIterator{its: its}
}

type chainBucketIterator struct {
	its []BucketIterator
	cur Bucket
}

func (it *chainBucketIterator) Next() bool {
	for len(it.its) > 0 {
		if it.its[0].Next() {
			it.cur = it.its[0].At()
			return true
		}
		it.its = it.its[1:]
	}
	return false
}

func (it *chainBucketIterator) At() Bucket { return it.cur }

// Percentiles sorts thresholds in place and returns the value at each
// percentile.
func (c *ComboSketch) Percentiles(thresholds []float64) []float64 {
	return percentiles(c, thresholds)
}

// DeepCopy returns an independent clone.
func (c *ComboSketch) DeepCopy() Sketch {
	cp := &ComboSketch{cfg: c.cfg}
	for _, h := range c.sketches {
		cp.sketches = append(cp.sketches, h.DeepCopy().(*SimpleSketch))
	}
	return cp
}

// Equals reports logical equality with another ComboSketch.
func (c *ComboSketch) Equals(other Sketch) bool {
	o, ok := other.(*ComboSketch)
	if !ok {
		return false
	}
	if c.cfg != o.cfg || len(c.sketches) != len(o.sketches) {
		return false
	}
	for i, h := range c.sketches {
		if !h.Equals(o.sketches[i]) {
			return false
		}
	}
	return true
}

func (c *ComboSketch) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ComboSketch{count=%d, sum=%v, min=%v, max=%v, children=[",
		c.Count(), c.Sum(), c.Min(), c.Max())
	for i, h := range c.sketches {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(h.String())
	}
	b.WriteString("]}")
	return b.String()
}
