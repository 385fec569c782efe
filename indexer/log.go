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

import "math"

// LogIndexer is the reference indexer. It works at every scale by
// taking the natural logarithm of the whole value, at the cost of
// growing index error as the scale factor grows.
type LogIndexer struct {
	indexerBase

	// scaleFactor is 2^scale / ln(2), so that
	// log(v) * scaleFactor == log2(v) * 2^scale.
	scaleFactor float64
}

var _ Indexer = (*LogIndexer)(nil)

// NewLogIndexer returns a LogIndexer at the given scale.
func NewLogIndexer(scale int32) (*LogIndexer, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	return &LogIndexer{
		indexerBase: newIndexerBase(scale),
		scaleFactor: math.Ldexp(math.Log2E, int(scale)),
	}, nil
}

func (x *LogIndexer) BucketIndex(value float64) int64 {
	// At the lowest scales the start of the lowest bucket rounds to
	// zero, whose logarithm is -Inf; such values start from MinIndex.
	index := x.MinIndex()
	if f := math.Floor(math.Log(value) * x.scaleFactor); f > float64(index) {
		index = min(int64(f), x.MaxIndex())
	}

	// Flooring a product that lands within an ulp of an integer can be
	// off by a bucket in either direction, more near the scale limit.
	// Settle against the same boundary function BucketStart uses.
	for index < x.MaxIndex() && scalePower(x.scale, index+1) <= value {
		index++
	}
	for index > x.MinIndex() && scalePower(x.scale, index) > value {
		index--
	}
	return index
}

func (x *LogIndexer) BucketStart(index int64) float64 {
	return scalePower(x.scale, index)
}

func (x *LogIndexer) BucketEnd(index int64) float64 {
	return bucketEnd(x, index)
}
