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
	"math"
	"math/bits"
)

// IEEE 754 binary64 layout: 1 sign bit, 11 biased exponent bits, 52
// significand bits, exponent bias 1023.
const (
	// SignificandWidth is the size of the significand field in bits.
	SignificandWidth = 52
	// ExponentWidth is the size of the exponent field in bits.
	ExponentWidth = 11

	// SignificandMask covers the significand field.
	SignificandMask = 1<<SignificandWidth - 1

	// ExponentBias is subtracted from the field value to obtain the
	// unbiased exponent.
	ExponentBias = 1<<(ExponentWidth-1) - 1

	// ExponentMask covers the exponent field.
	ExponentMask = ((1 << ExponentWidth) - 1) << SignificandWidth

	// SignMask covers the sign bit.
	SignMask uint64 = 1 << 63

	// MaxNormalExponent is the unbiased exponent of math.MaxFloat64.
	MaxNormalExponent int32 = ExponentBias

	// MinNormalExponent is the unbiased exponent of the smallest
	// normal number, 0x1p-1022.
	MinNormalExponent int32 = -ExponentBias + 1

	// MinExponent is the unbiased exponent of the smallest subnormal
	// number, 0x1p-1074.
	MinExponent int32 = MinNormalExponent - SignificandWidth
)

// SignBit returns 1 for negative values (including -0) and 0 otherwise.
func SignBit(value float64) uint64 {
	return math.Float64bits(value) >> 63
}

// BiasedExponent returns the raw exponent field. NaN and ±Inf report
// 2047; callers reject those before indexing.
func BiasedExponent(value float64) int32 {
	return int32((math.Float64bits(value) & ExponentMask) >> SignificandWidth)
}

// Exponent returns the unbiased base-2 exponent of a normal value.
func Exponent(value float64) int32 {
	return BiasedExponent(value) - ExponentBias
}

// Significand returns the 52-bit significand field, without the
// implicit leading bit.
func Significand(value float64) uint64 {
	return math.Float64bits(value) & SignificandMask
}

// Compose builds a float64 from a sign bit, a biased exponent field,
// and a significand field.
func Compose(sign uint64, biasedExponent int32, significand uint64) float64 {
	bits := sign<<63 |
		uint64(biasedExponent)<<SignificandWidth |
		significand&SignificandMask
	return math.Float64frombits(bits)
}

// ComposeOneToTwo builds the value in [1, 2) that has the given
// significand field.
func ComposeOneToTwo(significand uint64) float64 {
	return Compose(0, ExponentBias, significand)
}

// IsSubnormalOrZero reports whether the exponent field is zero, which
// covers ±0 and the subnormal range.
func IsSubnormalOrZero(value float64) bool {
	return math.Float64bits(value)&ExponentMask == 0
}

// normalizedParts splits a positive finite value into its power-of-two
// exponent and a significand normalized to implicit-bit form, so that
// subnormal inputs index the same way scaled-up normal values do.
func normalizedParts(value float64) (exponent int64, significand uint64) {
	significand = Significand(value)
	if be := BiasedExponent(value); be != 0 {
		return int64(be) - ExponentBias, significand
	}
	shift := uint(SignificandWidth + 1 - bits.Len64(significand))
	return int64(MinNormalExponent) - int64(shift), significand << shift & SignificandMask
}
