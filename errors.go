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
	"errors"

	"github.com/newrelic-experimental/newrelic-sketch-go/indexer"
)

var (
	// ErrInvalidConfiguration is returned by constructors for a
	// non-positive bucket budget, an out-of-range scale, or a misused
	// indexer variant. Indexer construction shares the same sentinel.
	ErrInvalidConfiguration = indexer.ErrInvalidConfiguration

	// ErrIncompatibleOperation is returned when sketches of different
	// variants or polarities are merged or subtracted.
	ErrIncompatibleOperation = errors.New("nrsketch: incompatible sketches")

	// ErrDecode is returned for malformed serialized input.
	ErrDecode = errors.New("nrsketch: malformed encoding")

	// ErrInternal marks invariant violations. Operations that cannot
	// return it, such as Insert, report it through Handle.
	ErrInternal = errors.New("nrsketch: internal invariant violation")
)
