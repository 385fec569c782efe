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

package indexer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldExtraction(t *testing.T) {
	assert.Equal(t, int32(ExponentBias), BiasedExponent(1.0))
	assert.Equal(t, int32(0), Exponent(1.0))
	assert.Equal(t, uint64(0), Significand(1.0))

	assert.Equal(t, int32(1), Exponent(2.0))
	assert.Equal(t, int32(-1), Exponent(0.5))
	assert.Equal(t, int32(3), Exponent(10.0))

	assert.Equal(t, uint64(1)<<(SignificandWidth-1), Significand(1.5))
	assert.Equal(t, uint64(SignificandMask), Significand(math.MaxFloat64))
	assert.Equal(t, MaxNormalExponent, Exponent(math.MaxFloat64))
	assert.Equal(t, MinNormalExponent, Exponent(0x1p-1022))

	assert.Equal(t, uint64(0), SignBit(1.5))
	assert.Equal(t, uint64(1), SignBit(-1.5))
	assert.Equal(t, uint64(1), SignBit(math.Copysign(0, -1)))

	// NaN and infinities carry the all-ones exponent field.
	assert.Equal(t, int32(2047), BiasedExponent(math.NaN()))
	assert.Equal(t, int32(2047), BiasedExponent(math.Inf(1)))
	assert.Equal(t, int32(2047), BiasedExponent(math.Inf(-1)))
}

func TestCompose(t *testing.T) {
	for _, v := range []float64{
		1, 1.5, 2, 0.5, math.Pi, 1e300, 1e-300,
		0x1p-1022, math.MaxFloat64,
	} {
		assert.Equal(t, v, Compose(SignBit(v), BiasedExponent(v), Significand(v)))
		assert.Equal(t, -v, Compose(1, BiasedExponent(v), Significand(v)))
	}
}

func TestComposeOneToTwo(t *testing.T) {
	for _, v := range []float64{1, 1.1, 1.25, 1.5, 1.75, 2 - 0x1p-52} {
		got := ComposeOneToTwo(Significand(v))
		assert.Equal(t, v, got)
		assert.GreaterOrEqual(t, got, 1.0)
		assert.Less(t, got, 2.0)
	}
	// The significand source's own exponent does not matter.
	assert.Equal(t, 1.5, ComposeOneToTwo(Significand(3.0)))
}

func TestIsSubnormalOrZero(t *testing.T) {
	assert.True(t, IsSubnormalOrZero(0))
	assert.True(t, IsSubnormalOrZero(math.Copysign(0, -1)))
	assert.True(t, IsSubnormalOrZero(math.SmallestNonzeroFloat64))
	assert.True(t, IsSubnormalOrZero(math.Float64frombits(0x000FFFFFFFFFFFFF)))

	assert.False(t, IsSubnormalOrZero(0x1p-1022))
	assert.False(t, IsSubnormalOrZero(1))
	assert.False(t, IsSubnormalOrZero(-1))
	assert.False(t, IsSubnormalOrZero(math.MaxFloat64))
}

func TestNormalizedParts(t *testing.T) {
	exp, sig := normalizedParts(1.5)
	assert.Equal(t, int64(0), exp)
	assert.Equal(t, uint64(1)<<(SignificandWidth-1), sig)

	exp, sig = normalizedParts(0x1p-1022)
	assert.Equal(t, int64(MinNormalExponent), exp)
	assert.Equal(t, uint64(0), sig)

	// Smallest subnormal normalizes to 1.0 x 2^-1074.
	exp, sig = normalizedParts(math.SmallestNonzeroFloat64)
	assert.Equal(t, int64(MinExponent), exp)
	assert.Equal(t, uint64(0), sig)

	// 3 x 2^-1074 normalizes to 1.5 x 2^-1073.
	exp, sig = normalizedParts(math.Float64frombits(3))
	assert.Equal(t, int64(MinExponent)+1, exp)
	assert.Equal(t, uint64(1)<<(SignificandWidth-1), sig)
}
