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
)

// Width promotion thresholds are the signed maxima so that counter
// widths stay compatible with other implementations of the wire
// format, which store counters in signed arrays.
const (
	maxByteCounter  = math.MaxInt8
	maxShortCounter = math.MaxInt16
	maxIntCounter   = math.MaxInt32
)

// MultiTypeCounterArray is a fixed-size array of non-negative counters
// stored at the narrowest width able to hold them. The backing array
// widens from 1 to 2, 4, and 8 bytes per counter as entries grow, and
// never narrows.
type MultiTypeCounterArray struct {
	byteCounts  []uint8
	shortCounts []uint16
	intCounts   []uint32
	longCounts  []uint64
}

// NewMultiTypeCounterArray returns an array of size zeroed one-byte
// counters.
func NewMultiTypeCounterArray(size int) *MultiTypeCounterArray {
	return &MultiTypeCounterArray{byteCounts: make([]uint8, size)}
}

// MaxSize returns the number of counters.
func (a *MultiTypeCounterArray) MaxSize() int {
	switch {
	case a.byteCounts != nil:
		return len(a.byteCounts)
	case a.shortCounts != nil:
		return len(a.shortCounts)
	case a.intCounts != nil:
		return len(a.intCounts)
	default:
		return len(a.longCounts)
	}
}

// BytesPerCounter returns the current storage width.
func (a *MultiTypeCounterArray) BytesPerCounter() int {
	switch {
	case a.byteCounts != nil:
		return 1
	case a.shortCounts != nil:
		return 2
	case a.intCounts != nil:
		return 4
	default:
		return 8
	}
}

// Get returns the counter at index.
func (a *MultiTypeCounterArray) Get(index int) uint64 {
	switch {
	case a.byteCounts != nil:
		return uint64(a.byteCounts[index])
	case a.shortCounts != nil:
		return uint64(a.shortCounts[index])
	case a.intCounts != nil:
		return uint64(a.intCounts[index])
	default:
		return a.longCounts[index]
	}
}

// Increment adds delta to the counter at index, widening the backing
// array as many steps as the new value requires.
func (a *MultiTypeCounterArray) Increment(index int, delta uint64) {
	for {
		switch {
		case a.byteCounts != nil:
			v := uint64(a.byteCounts[index]) + delta
			if v > maxByteCounter {
				a.widen()
				continue
			}
			a.byteCounts[index] = uint8(v)
		case a.shortCounts != nil:
			v := uint64(a.shortCounts[index]) + delta
			if v > maxShortCounter {
				a.widen()
				continue
			}
			a.shortCounts[index] = uint16(v)
		case a.intCounts != nil:
			v := uint64(a.intCounts[index]) + delta
			if v > maxIntCounter {
				a.widen()
				continue
			}
			a.intCounts[index] = uint32(v)
		default:
			a.longCounts[index] += delta
		}
		return
	}
}

func (a *MultiTypeCounterArray) widen() {
	switch {
	case a.byteCounts != nil:
		next := make([]uint16, len(a.byteCounts))
		for i, v := range a.byteCounts {
			next[i] = uint16(v)
		}
		a.byteCounts, a.shortCounts = nil, next
	case a.shortCounts != nil:
		next := make([]uint32, len(a.shortCounts))
		for i, v := range a.shortCounts {
			next[i] = uint32(v)
		}
		a.shortCounts, a.intCounts = nil, next
	case a.intCounts != nil:
		next := make([]uint64, len(a.intCounts))
		for i, v := range a.intCounts {
			next[i] = uint64(v)
		}
		a.intCounts, a.longCounts = nil, next
	default:
		Handle(fmt.Errorf("%w: counter array cannot widen past 8 bytes", ErrInternal))
	}
}

// widenTo promotes the storage width to at least bytes per counter.
func (a *MultiTypeCounterArray) widenTo(bytes int) {
	for a.BytesPerCounter() < bytes {
		a.widen()
	}
}

// DeepCopy returns an independent clone at the same width.
func (a *MultiTypeCounterArray) DeepCopy() *MultiTypeCounterArray {
	c := &MultiTypeCounterArray{}
	switch {
	case a.byteCounts != nil:
		c.byteCounts = append([]uint8(nil), a.byteCounts...)
	case a.shortCounts != nil:
		c.shortCounts = append([]uint16(nil), a.shortCounts...)
	case a.intCounts != nil:
		c.intCounts = append([]uint32(nil), a.intCounts...)
	default:
		c.longCounts = append([]uint64(nil), a.longCounts...)
	}
	return c
}
