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

package nrsketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiTypeCounterArrayWidening(t *testing.T) {
	a := NewMultiTypeCounterArray(5)
	require.Equal(t, 5, a.MaxSize())
	require.Equal(t, 1, a.BytesPerCounter())

	a.Increment(0, 127)
	assert.Equal(t, 1, a.BytesPerCounter())
	assert.Equal(t, uint64(127), a.Get(0))

	a.Increment(0, 1) // 128 no longer fits a byte counter
	assert.Equal(t, 2, a.BytesPerCounter())
	assert.Equal(t, uint64(128), a.Get(0))

	a.Increment(0, 32767-128)
	assert.Equal(t, 2, a.BytesPerCounter())
	a.Increment(0, 1)
	assert.Equal(t, 4, a.BytesPerCounter())
	assert.Equal(t, uint64(32768), a.Get(0))

	a.Increment(0, 2147483647-32768)
	assert.Equal(t, 4, a.BytesPerCounter())
	a.Increment(0, 1)
	assert.Equal(t, 8, a.BytesPerCounter())
	assert.Equal(t, uint64(2147483648), a.Get(0))

	// Other entries survive every promotion.
	assert.Equal(t, uint64(0), a.Get(3))

	// Widths never shrink.
	a.Increment(1, 1)
	assert.Equal(t, 8, a.BytesPerCounter())
	assert.Equal(t, uint64(1), a.Get(1))
}

func TestMultiTypeCounterArraySkipsWidths(t *testing.T) {
	a := NewMultiTypeCounterArray(3)
	a.Increment(1, 7)
	a.Increment(2, 1<<40)
	assert.Equal(t, 8, a.BytesPerCounter())
	assert.Equal(t, uint64(7), a.Get(1))
	assert.Equal(t, uint64(1)<<40, a.Get(2))
	assert.Equal(t, uint64(0), a.Get(0))
}

func TestMultiTypeCounterArrayDeepCopy(t *testing.T) {
	a := NewMultiTypeCounterArray(4)
	a.Increment(0, 300)
	a.Increment(3, 12)

	b := a.DeepCopy()
	require.Equal(t, 2, b.BytesPerCounter())
	assert.Equal(t, uint64(300), b.Get(0))
	assert.Equal(t, uint64(12), b.Get(3))

	b.Increment(0, 1)
	assert.Equal(t, uint64(300), a.Get(0))
	assert.Equal(t, uint64(301), b.Get(0))
}
