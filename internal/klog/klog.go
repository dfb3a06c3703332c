// Copyright 2024 The Gokernel Authors.
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

// Package klog is the kernel core's leveled logger. It wraps logrus with
// the small Infof/Debugf/Warningf/Fatalf surface used throughout the
// kernel packages, so call sites never import logrus directly.
package klog

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel sets the minimum level emitted by the package logger. Accepts
// "debug", "info", "warn", "error".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(lvl)
	return nil
}

// Debugf logs at debug level. Used for per-tick accounting and scheduler
// dispatch tracing.
func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Infof logs at info level. Used for process create/exit/kill events.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warningf logs at warn level. Used for caller errors surfaced at the
// syscall boundary (out-of-domain arguments, rejected priority changes).
func Warningf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Fatalf logs at error level describing an invariant violation and then
// panics with the same message. Invariant violations are kernel bugs, not
// caller errors, so they are never returned as a normal error value.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	std.Error(msg)
	panic(msg)
}
