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
	"math"
	"sort"
)

// percentiles implements the shared percentile scan. It sorts the
// thresholds in place so all of them resolve in one bucket walk, and
// reports the midpoint of the bucket covering each target count.
// Thresholds at or beyond the ends clamp to Min and Max.
func percentiles(s Sketch, thresholds []float64) []float64 {
	sort.Float64s(thresholds)
	out := make([]float64, len(thresholds))
	total := float64(s.Count())
	if total == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	it := s.Buckets()
	var cumulative float64
	var bucket Bucket
	for i, t := range thresholds {
		switch {
		case t <= 0:
			out[i] = s.Min()
		case t >= 100:
			out[i] = s.Max()
		default:
			target := total * t / 100
			for cumulative < target {
				if !it.Next() {
					// Counter drift from merge or subtract; the last
					// bucket stands in for the remainder.
					cumulative = total
					break
				}
				bucket = it.At()
				cumulative += float64(bucket.Count)
			}
			out[i] = (bucket.Start + bucket.End) / 2
		}
	}
	return out
}
