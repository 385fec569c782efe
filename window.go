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

import "math"

// NullIndex marks an unset window bound.
const NullIndex int64 = math.MinInt64

// WindowedCounterArray exposes a logically infinite array of counters
// indexed by int64, of which a window of at most maxSize consecutive
// indexes may be occupied. The backing storage is a ring, so the
// window extends in either direction without moving data.
type WindowedCounterArray struct {
	counters *MultiTypeCounterArray

	// indexBase anchors the logical-to-physical mapping. It is the
	// first index ever written; after a rebuild it may equal
	// indexStart instead, which is logically equivalent.
	indexBase  int64
	indexStart int64
	indexEnd   int64
}

// NewWindowedCounterArray returns an empty array with a window budget
// of maxSize counters.
func NewWindowedCounterArray(maxSize int) *WindowedCounterArray {
	return &WindowedCounterArray{
		counters:   NewMultiTypeCounterArray(maxSize),
		indexBase:  NullIndex,
		indexStart: NullIndex,
		indexEnd:   NullIndex,
	}
}

// MaxSize returns the window budget.
func (w *WindowedCounterArray) MaxSize() int { return w.counters.MaxSize() }

// IsEmpty reports whether nothing has been written.
func (w *WindowedCounterArray) IsEmpty() bool { return w.indexBase == NullIndex }

// IndexStart returns the lowest occupied index, or NullIndex when
// empty.
func (w *WindowedCounterArray) IndexStart() int64 { return w.indexStart }

// IndexEnd returns the highest occupied index, or NullIndex when
// empty.
func (w *WindowedCounterArray) IndexEnd() int64 { return w.indexEnd }

// WindowSize returns the current window span.
func (w *WindowedCounterArray) WindowSize() int64 {
	if w.IsEmpty() {
		return 0
	}
	return w.indexEnd - w.indexStart + 1
}

// BytesPerCounter returns the storage width of the backing counters.
func (w *WindowedCounterArray) BytesPerCounter() int { return w.counters.BytesPerCounter() }

// Increment adds delta to the counter at index, growing the window as
// needed. It returns false, without side effect, when accepting the
// write would stretch the window beyond MaxSize.
func (w *WindowedCounterArray) Increment(index int64, delta uint64) bool {
	switch {
	case w.IsEmpty():
		w.indexBase, w.indexStart, w.indexEnd = index, index, index
	case index < w.indexStart:
		if w.indexEnd-index+1 > int64(w.MaxSize()) {
			return false
		}
		w.indexStart = index
	case index > w.indexEnd:
		if index-w.indexStart+1 > int64(w.MaxSize()) {
			return false
		}
		w.indexEnd = index
	}
	w.counters.Increment(w.offset(index), delta)
	return true
}

// Get returns the counter at index, zero outside the window.
func (w *WindowedCounterArray) Get(index int64) uint64 {
	if w.IsEmpty() || index < w.indexStart || index > w.indexEnd {
		return 0
	}
	return w.counters.Get(w.offset(index))
}

func (w *WindowedCounterArray) offset(index int64) int {
	return int(modPositive(index-w.indexBase, int64(w.MaxSize())))
}

func modPositive(value, modulus int64) int64 {
	r := value % modulus
	if r < 0 {
		r += modulus
	}
	return r
}

// DeepCopy returns an independent clone.
func (w *WindowedCounterArray) DeepCopy() *WindowedCounterArray {
	return &WindowedCounterArray{
		counters:   w.counters.DeepCopy(),
		indexBase:  w.indexBase,
		indexStart: w.indexStart,
		indexEnd:   w.indexEnd,
	}
}

// Equals reports whether both arrays hold the same counts at the same
// logical indexes under the same window budget. The physical base and
// counter width do not matter.
func (w *WindowedCounterArray) Equals(other *WindowedCounterArray) bool {
	if w.MaxSize() != other.MaxSize() {
		return false
	}
	if w.IsEmpty() || other.IsEmpty() {
		return w.IsEmpty() == other.IsEmpty()
	}
	if w.indexStart != other.indexStart || w.indexEnd != other.indexEnd {
		return false
	}
	for i := w.indexStart; i <= w.indexEnd; i++ {
		if w.counters.Get(w.offset(i)) != other.counters.Get(other.offset(i)) {
			return false
		}
	}
	return true
}
