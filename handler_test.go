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
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newrelic-experimental/newrelic-sketch-go/internal/global"
)

// swapHandler installs h for the duration of the test.
func swapHandler(t *testing.T, h ErrorHandler) {
	t.Helper()
	SetErrorHandler(h)
	t.Cleanup(func() {
		SetErrorHandler(ErrorHandlerFunc(func(err error) {
			global.Error(err, "nrsketch error")
		}))
	})
}

func TestHandleDispatches(t *testing.T) {
	var got error
	swapHandler(t, ErrorHandlerFunc(func(err error) { got = err }))

	want := errors.New("boom")
	Handle(want)
	assert.ErrorIs(t, got, want)
}

func TestInsertReportsWindowExhaustion(t *testing.T) {
	var got error
	swapHandler(t, ErrorHandlerFunc(func(err error) { got = err }))

	// A single-bucket budget cannot hold values on both sides of 1.0
	// even at the minimum scale; the insert is dropped and reported.
	s, err := NewSimpleSketch(WithMaxBuckets(1))
	require.NoError(t, err)
	s.Insert(1e-300)
	s.Insert(1e300)

	require.Error(t, got)
	assert.ErrorIs(t, got, ErrInternal)
	// The sample was dropped from the buckets but the scalars saw it.
	assert.Equal(t, uint64(2), s.Count())
}

func TestSetLogger(t *testing.T) {
	SetLogger(logr.Discard())
	t.Cleanup(func() { SetLogger(logr.Discard()) })

	// The default handler logs through the configured logger; with a
	// discard logger this must simply not panic.
	Handle(errors.New("ignored"))
}
