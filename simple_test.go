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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newrelic-experimental/newrelic-sketch-go/indexer"
)

func collectBuckets(s Sketch) []Bucket {
	var out []Bucket
	for it := s.Buckets(); it.Next(); {
		out = append(out, it.At())
	}
	return out
}

func TestDefaultSketchWideRange(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)

	for i := 1; i <= 1_000_000; i++ {
		s.Insert(float64(i))
	}
	for i := -10_000; i <= 0; i++ {
		s.Insert(float64(i))
	}

	assert.Equal(t, int32(4), s.Scale())
	assert.InDelta(t, 0.02165746, s.RelativeError(), 1e-8)
	assert.Equal(t, uint64(1_010_001), s.Count())
	assert.Equal(t, uint64(10_000), s.CountForWrongSign())
	assert.Equal(t, uint64(1), s.CountForZero())
	assert.Equal(t, -10_000.0, s.Min())
	assert.Equal(t, 1_000_000.0, s.Max())
}

func TestPercentileScan(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)
	for i := 0; i <= 9_999; i++ {
		s.Insert(float64(i))
	}
	require.Equal(t, int32(4), s.Scale())

	thresholds := []float64{0, 25, 50, 90, 100}
	got := s.Percentiles(thresholds)
	want := []float64{0, 2489.4104853260333, 4978.8209706520665, 9131.197920960301, 9999}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "threshold %v", thresholds[i])
	}
}

func TestPercentilesEdgeCases(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)

	for _, v := range s.Percentiles([]float64{0, 50, 100}) {
		assert.True(t, math.IsNaN(v))
	}

	s.Insert(5)
	s.Insert(15)
	got := s.Percentiles([]float64{-10, 150})
	assert.Equal(t, 5.0, got[0])
	assert.Equal(t, 15.0, got[1])

	// Thresholds sort in place.
	thresholds := []float64{100, 0}
	s.Percentiles(thresholds)
	assert.Equal(t, []float64{0, 100}, thresholds)
}

func TestTenBucketSketch(t *testing.T) {
	s, err := NewSimpleSketch(WithMaxBuckets(10))
	require.NoError(t, err)
	s.Insert(10)
	s.Insert(100)

	assert.Equal(t, int32(1), s.Scale())
	assert.InDelta(t, 0.17157287525380996, s.RelativeError(), 1e-15)

	buckets := collectBuckets(s)
	require.Len(t, buckets, 2)
	assert.Equal(t, 10.0, buckets[0].Start)
	assert.InDelta(t, 11.313708498984761, buckets[0].End, 1e-12)
	assert.Equal(t, uint64(1), buckets[0].Count)
	assert.InDelta(t, 90.50966799187809, buckets[1].Start, 1e-12)
	assert.Equal(t, 100.0, buckets[1].End)
	assert.Equal(t, uint64(1), buckets[1].Count)
}

func TestInsertSpecialValues(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)

	s.Insert(math.NaN())
	s.Insert(math.Inf(1))
	s.Insert(math.Inf(-1))
	assert.Equal(t, uint64(0), s.Count())
	assert.True(t, math.IsNaN(s.Min()))
	assert.True(t, math.IsNaN(s.Max()))

	s.Insert(0)
	s.Insert(math.SmallestNonzeroFloat64) // subnormals share the zero bucket
	assert.Equal(t, uint64(2), s.Count())
	assert.Equal(t, uint64(2), s.CountForZero())
	assert.Equal(t, 0.0, s.Min())
	assert.Equal(t, math.SmallestNonzeroFloat64, s.Max())

	s.InsertN(5, 3)
	assert.Equal(t, uint64(5), s.Count())
	assert.Equal(t, 15.0, s.Sum())
	assert.Equal(t, 5.0, s.Max())
}

func TestWrongSignSamples(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)
	s.Insert(-5)
	assert.Equal(t, uint64(1), s.Count())
	assert.Equal(t, uint64(1), s.CountForWrongSign())
	assert.Equal(t, -5.0, s.Min())
	assert.Equal(t, -5.0, s.Max())

	buckets := collectBuckets(s)
	require.Len(t, buckets, 1)
	assert.Equal(t, Bucket{Start: -5, End: -5, Count: 1}, buckets[0])

	s.Insert(3)
	buckets = collectBuckets(s)
	require.Len(t, buckets, 2)
	// The negative-side summary spans from min up to zero.
	assert.Equal(t, Bucket{Start: -5, End: 0, Count: 1}, buckets[0])
	assert.InDelta(t, 3, buckets[1].Start, 0.01)
	assert.Equal(t, 3.0, buckets[1].End)
	assert.Equal(t, uint64(1), buckets[1].Count)
}

func TestNegativeSketchIteration(t *testing.T) {
	s, err := NewNegativeSimpleSketch(WithMaxBuckets(10))
	require.NoError(t, err)
	for i := -1; i >= -100; i-- {
		s.Insert(float64(i))
	}
	s.Insert(0)
	s.Insert(3)

	assert.Equal(t, int32(0), s.Scale())
	assert.Equal(t, uint64(102), s.Count())
	assert.Equal(t, uint64(1), s.CountForZero())
	assert.Equal(t, uint64(1), s.CountForWrongSign())

	buckets := collectBuckets(s)
	require.Len(t, buckets, 9)

	wantCounts := []uint64{37, 32, 16, 8, 4, 2, 1}
	for i, want := range wantCounts {
		assert.Equal(t, want, buckets[i].Count, "bucket %d", i)
	}
	// Most negative first, with min as the leading bound.
	assert.Equal(t, -100.0, buckets[0].Start)
	assert.Equal(t, -64.0, buckets[0].End)
	assert.Equal(t, -64.0, buckets[1].Start)
	assert.Equal(t, -32.0, buckets[1].End)
	assert.Equal(t, -2.0, buckets[6].Start)
	assert.Equal(t, -1.0, buckets[6].End)

	assert.Equal(t, Bucket{Start: 0, End: 0, Count: 1}, buckets[7])
	// Positive residue summary spans zero to max.
	assert.Equal(t, Bucket{Start: 0, End: 3, Count: 1}, buckets[8])
}

func TestBucketCountConservation(t *testing.T) {
	s, err := NewSimpleSketch(WithMaxBuckets(20))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		s.Insert(float64(i%30) - 10)
	}

	var counted uint64
	for it := s.Buckets(); it.Next(); {
		counted += it.At().Count
	}
	assert.Equal(t, s.Count(), counted)
	assert.LessOrEqual(t, s.Min(), s.Max())
}

func TestValueFallsInExactlyOneBucket(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)
	values := []float64{0.004, 3.7, 19.2, 1234.5}
	for _, v := range values {
		s.Insert(v)
	}
	buckets := collectBuckets(s)
	for _, v := range values {
		hits := 0
		for _, b := range buckets {
			if b.Start <= v && v <= b.End {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "value %v", v)
	}
}

func TestDownscaleKeepsEveryCount(t *testing.T) {
	s, err := NewSimpleSketch(WithMaxBuckets(5))
	require.NoError(t, err)
	startScale := s.Scale()
	for i := 1; i <= 4096; i *= 2 {
		s.InsertN(float64(i), uint64(i))
	}
	assert.Less(t, s.Scale(), startScale)

	var counted uint64
	for it := s.Buckets(); it.Next(); {
		counted += it.At().Count
	}
	assert.Equal(t, uint64(8191), counted)
	assert.Equal(t, s.Count(), counted)
}

func TestMergeIdentity(t *testing.T) {
	x, err := NewSimpleSketch()
	require.NoError(t, err)
	x.Insert(3)
	x.Insert(700)

	empty, err := NewSimpleSketch()
	require.NoError(t, err)

	left := x.DeepCopy().(*SimpleSketch)
	require.NoError(t, left.Merge(empty))
	assert.True(t, left.Equals(x))

	right, err := NewSimpleSketch()
	require.NoError(t, err)
	require.NoError(t, right.Merge(x))
	assert.True(t, right.Equals(x))
}

func TestMergeAddsCounts(t *testing.T) {
	x, err := NewSimpleSketch()
	require.NoError(t, err)
	y, err := NewSimpleSketch()
	require.NoError(t, err)
	for i := 1; i <= 50; i++ {
		x.Insert(float64(i))
		y.Insert(float64(i) * 1.5)
	}
	merged := x.DeepCopy().(*SimpleSketch)
	require.NoError(t, merged.Merge(y))
	assert.Equal(t, x.Count()+y.Count(), merged.Count())
	assert.Equal(t, x.Sum()+y.Sum(), merged.Sum())
	assert.Equal(t, 1.0, merged.Min())
	assert.Equal(t, 75.0, merged.Max())
}

func TestMergeAcrossScales(t *testing.T) {
	a, err := NewSimpleSketch(WithMaxBuckets(64))
	require.NoError(t, err)
	for v := 100; v <= 991; v++ {
		a.Insert(float64(v))
	}
	require.Equal(t, int32(4), a.Scale())

	b, err := NewSimpleSketch(WithMaxBuckets(7))
	require.NoError(t, err)
	for v := 500; v <= 1985; v++ {
		b.Insert(float64(v))
	}
	require.Equal(t, int32(1), b.Scale())

	merged := a.DeepCopy().(*SimpleSketch)
	require.NoError(t, merged.Merge(b))
	require.Equal(t, int32(1), merged.Scale())

	// The merge must equal the same insertions replayed at the common
	// scale.
	ix, err := indexer.PolicyAuto.NewIndexer(merged.Scale())
	require.NoError(t, err)
	want := map[int64]uint64{}
	for v := 100; v <= 991; v++ {
		want[ix.BucketIndex(float64(v))]++
	}
	for v := 500; v <= 1985; v++ {
		want[ix.BucketIndex(float64(v))]++
	}
	for i := merged.buckets.IndexStart(); i <= merged.buckets.IndexEnd(); i++ {
		assert.Equal(t, want[i], merged.buckets.Get(i), "index %d", i)
	}
	assert.Equal(t, uint64(892+1486), merged.Count())
	assert.Equal(t, 486586.0+1846355.0, merged.Sum())
	assert.Equal(t, 100.0, merged.Min())
	assert.Equal(t, 1985.0, merged.Max())
}

func TestMergeIncompatible(t *testing.T) {
	pos, err := NewSimpleSketch()
	require.NoError(t, err)
	neg, err := NewNegativeSimpleSketch()
	require.NoError(t, err)
	assert.ErrorIs(t, pos.Merge(neg), ErrIncompatibleOperation)

	combo, err := NewComboSketch()
	require.NoError(t, err)
	assert.ErrorIs(t, pos.Merge(combo), ErrIncompatibleOperation)
	assert.ErrorIs(t, pos.Subtract(combo), ErrIncompatibleOperation)
}

func TestSubtractInverseOfMerge(t *testing.T) {
	x, err := NewSimpleSketch()
	require.NoError(t, err)
	x.Insert(1)
	x.Insert(1000)
	require.Equal(t, int32(5), x.Scale())

	y, err := NewSimpleSketch()
	require.NoError(t, err)
	y.Insert(2)
	y.Insert(500)
	require.Equal(t, int32(5), y.Scale())

	z := x.DeepCopy().(*SimpleSketch)
	require.NoError(t, z.Merge(y))
	require.Equal(t, x.Count()+y.Count(), z.Count())
	require.NoError(t, z.Subtract(y))
	assert.True(t, z.Equals(x), "got %v, want %v", z, x)
}

func TestSubtractBorrowsFromNeighbor(t *testing.T) {
	x, err := NewSimpleSketch()
	require.NoError(t, err)
	x.InsertN(10, 3)

	y, err := NewSimpleSketch()
	require.NoError(t, err)
	y.Insert(10.002) // adjacent bucket at the default scale

	require.NoError(t, x.Subtract(y))
	assert.Equal(t, uint64(2), x.Count())

	var counted uint64
	for it := x.Buckets(); it.Next(); {
		counted += it.At().Count
	}
	assert.Equal(t, uint64(2), counted)
	assert.InDelta(t, 19.998, x.Sum(), 1e-9)
}

func TestSubtractToEmpty(t *testing.T) {
	x, err := NewSimpleSketch()
	require.NoError(t, err)
	x.Insert(4)
	x.Insert(-2)
	x.Insert(0)

	require.NoError(t, x.Subtract(x.DeepCopy().(*SimpleSketch)))
	assert.Equal(t, uint64(0), x.Count())
	assert.Equal(t, uint64(0), x.CountForZero())
	assert.Equal(t, uint64(0), x.CountForWrongSign())
	assert.True(t, math.IsNaN(x.Min()))
	assert.True(t, math.IsNaN(x.Max()))
}

func TestDeepCopyIndependence(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)
	s.Insert(8)

	c := s.DeepCopy().(*SimpleSketch)
	require.True(t, c.Equals(s))

	c.Insert(9)
	assert.Equal(t, uint64(1), s.Count())
	assert.Equal(t, uint64(2), c.Count())
	assert.False(t, c.Equals(s))
}

func TestSimpleSketchEquality(t *testing.T) {
	a, err := NewSimpleSketch()
	require.NoError(t, err)
	b, err := NewSimpleSketch()
	require.NoError(t, err)
	assert.True(t, a.Equals(b), "empty sketches with NaN extrema are equal")

	a.Insert(42)
	assert.False(t, a.Equals(b))
	b.Insert(42)
	assert.True(t, a.Equals(b))

	polarity, err := NewNegativeSimpleSketch()
	require.NoError(t, err)
	assert.False(t, polarity.Equals(b))

	logPolicy, err := NewSimpleSketch(WithIndexerPolicy(indexer.PolicyLog))
	require.NoError(t, err)
	assert.False(t, logPolicy.Equals(b))
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := NewSimpleSketch(WithMaxBuckets(0))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewSimpleSketch(WithMaxBuckets(-3))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewSimpleSketch(WithInitialScale(53))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewSimpleSketch(WithInitialScale(-12))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewSimpleSketch(WithIndexerPolicy(indexer.Policy(7)))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	_, err = NewComboSketch(WithMaxBuckets(0))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSimpleSketchString(t *testing.T) {
	s, err := NewSimpleSketch()
	require.NoError(t, err)
	s.Insert(2)
	assert.Contains(t, s.String(), "SimpleSketch{count=1")
}
