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
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/newrelic-experimental/newrelic-sketch-go/internal/global"
)

// ErrorHandler receives errors from code paths that have no error
// return, such as an invariant violation during Insert.
type ErrorHandler interface {
	Handle(err error)
}

// ErrorHandlerFunc adapts a function to the ErrorHandler interface.
type ErrorHandlerFunc func(error)

func (f ErrorHandlerFunc) Handle(err error) { f(err) }

var errorHandler atomic.Pointer[ErrorHandler]

func init() {
	SetErrorHandler(ErrorHandlerFunc(func(err error) {
		global.Error(err, "nrsketch error")
	}))
}

// SetErrorHandler replaces the process-wide error handler.
func SetErrorHandler(h ErrorHandler) {
	errorHandler.Store(&h)
}

// Handle dispatches an error to the configured handler.
func Handle(err error) {
	(*errorHandler.Load()).Handle(err)
}

// SetLogger replaces the logger used by the default error handler and
// other internal reporting.
func SetLogger(l logr.Logger) {
	global.SetLogger(l)
}
