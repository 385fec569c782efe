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

// Package global holds the library's process-wide logger.
package global // import "github.com/newrelic-experimental/newrelic-sketch-go/internal/global"

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// globalLogger holds a logr.Logger used for library-internal
// reporting. It defaults to stdr writing to os.Stderr.
var globalLogger atomic.Pointer[logr.Logger]

func init() {
	SetLogger(stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)))
}

// SetLogger replaces the process-wide logger.
func SetLogger(l logr.Logger) {
	globalLogger.Store(&l)
}

func getLogger() logr.Logger {
	return *globalLogger.Load()
}

// Error logs an error message with the configured logger.
func Error(err error, msg string, keysAndValues ...interface{}) {
	getLogger().Error(err, msg, keysAndValues...)
}

// Info logs at the default verbosity for informational messages.
func Info(msg string, keysAndValues ...interface{}) {
	getLogger().V(4).Info(msg, keysAndValues...)
}

// Debug logs at high verbosity.
func Debug(msg string, keysAndValues ...interface{}) {
	getLogger().V(8).Info(msg, keysAndValues...)
}
