// Copyright (c) 2016-2019 Uber Technologies, Inc.
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

// Package log wraps a global zap logger. Components log through the package
// level functions; the daemon installs the real cores once at startup.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _default *zap.SugaredLogger

// The pre-configuration default keeps early startup messages visible.
func init() {
	ConfigureLogger(NewLineCore(Config{Level: zapcore.InfoLevel}))
}

// ConfigureLogger installs a global logger writing through core.
func ConfigureLogger(core zapcore.Core) *zap.SugaredLogger {
	logger := zap.New(core, zap.AddCaller())

	// Skip this wrapper in a call stack.
	logger = logger.WithOptions(zap.AddCallerSkip(1))

	_default = logger.Sugar()
	return _default
}

// Default returns the default global logger.
func Default() *zap.SugaredLogger {
	return _default
}

// SetName names the default logger. Records carry the name as their logger
// name, which the line core's target filter matches against.
func SetName(name string) {
	_default = _default.Desugar().Named(name).Sugar()
}

// Debug uses fmt.Sprint to construct and log a message.
func Debug(args ...interface{}) {
	Default().Debug(args...)
}

// Info uses fmt.Sprint to construct and log a message.
func Info(args ...interface{}) {
	Default().Info(args...)
}

// Warn uses fmt.Sprint to construct and log a message.
func Warn(args ...interface{}) {
	Default().Warn(args...)
}

// Error uses fmt.Sprint to construct and log a message.
func Error(args ...interface{}) {
	Default().Error(args...)
}

// Debugf uses fmt.Sprintf to log a templated message.
func Debugf(template string, args ...interface{}) {
	Default().Debugf(template, args...)
}

// Infof uses fmt.Sprintf to log a templated message.
func Infof(template string, args ...interface{}) {
	Default().Infof(template, args...)
}

// Warnf uses fmt.Sprintf to log a templated message.
func Warnf(template string, args ...interface{}) {
	Default().Warnf(template, args...)
}

// Errorf uses fmt.Sprintf to log a templated message.
func Errorf(template string, args ...interface{}) {
	Default().Errorf(template, args...)
}

// Fatalf uses fmt.Sprintf to log a templated message, then calls os.Exit.
func Fatalf(template string, args ...interface{}) {
	Default().Fatalf(template, args...)
}

// Tracef uses fmt.Sprintf to log a templated message below debug level.
// SugaredLogger has no method for custom levels, hence the checked write.
func Tracef(template string, args ...interface{}) {
	if ce := Default().Desugar().Check(TraceLevel, fmt.Sprintf(template, args...)); ce != nil {
		ce.Write()
	}
}

// With adds a variadic number of fields to the logging context. It accepts a
// mix of strongly-typed zapcore.Field objects and loosely-typed key-value
// pairs.
func With(args ...interface{}) *zap.SugaredLogger {
	return Default().With(args...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return Default().Sync()
}
