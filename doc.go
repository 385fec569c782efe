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

// Package nrsketch implements scaled base-2 exponential histograms: a
// compact, mergeable summary of a float64 stream that answers quantile
// queries with a bounded relative error.
//
// A SimpleSketch indexes one sign of the number line into at most a
// configured number of buckets, automatically coarsening its scale as
// the observed range grows. A ComboSketch pairs two simple sketches
// for full-range resolution, and a ConcurrentSketch serializes access
// to any sketch behind a single mutex. Sketches merge and subtract
// losslessly across scales and round-trip through a stable big-endian
// wire format via Marshal and Unmarshal.
package nrsketch // import "github.com/newrelic-experimental/newrelic-sketch-go"
