/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides the structured event log every subsystem emits
// warn/error records through: queue-full, critical-timeout, breaker state
// transitions, reconnect attempts. Fields are key=value pairs attached to a
// named event, same shape the source's EmitStructuredLog used, rendered
// through zerolog instead of a hand-rolled ostream writer.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Field is a single key=value pair attached to a structured event.
type Field struct {
	Key   string
	Value string
}

func F(key, value string) Field { return Field{Key: key, Value: value} }

// Logger wraps a zerolog.Logger with the app-scoped event helpers used
// throughout the core.
type Logger struct {
	app string
	zl  zerolog.Logger
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns a process-wide logger writing to stderr at info level.
// Components may construct their own via New for isolated tests.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New("quant-hft-core", "info", os.Stderr)
	})
	return defaultLog
}

// New builds a Logger scoped to app, writing to sink at the given minimum
// level ("debug", "info", "warn", "error").
func New(app, level string, sink io.Writer) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixNano
	zl := zerolog.New(sink).With().Timestamp().Str("app", app).Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{app: app, zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) emit(evt *zerolog.Event, event string, fields ...Field) {
	for _, f := range fields {
		evt = evt.Str(f.Key, f.Value)
	}
	evt.Msg(event)
}

func (l *Logger) Debug(event string, fields ...Field) { l.emit(l.zl.Debug(), event, fields...) }
func (l *Logger) Info(event string, fields ...Field)  { l.emit(l.zl.Info(), event, fields...) }
func (l *Logger) Warn(event string, fields ...Field)  { l.emit(l.zl.Warn(), event, fields...) }
func (l *Logger) Error(event string, fields ...Field) { l.emit(l.zl.Error(), event, fields...) }
