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
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below zap's debug level. The custom cores in this package
// understand it; stock zap encoders would print it as "LEVEL(-2)".
const TraceLevel = zapcore.Level(-2)

// Config defines the stderr core configuration.
type Config struct {
	// Level is the minimum level written out.
	Level zapcore.Level

	// Target filters records by logger name: a record passes if its logger
	// name equals Target or is nested under it ("Target." prefix). Empty
	// shows everything.
	Target string

	// Writer overrides os.Stderr, for tests.
	Writer io.Writer
}

// NewLineCore creates a core producing one line per record in the format
// "L: <message>", prefixed with "[file:line] " when Level includes debug.
// Lines are written atomically under a mutex with a single Write each.
func NewLineCore(config Config) zapcore.Core {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	return &lineCore{
		level:  config.Level,
		target: config.Target,
		debug:  config.Level <= zapcore.DebugLevel,
		mu:     &sync.Mutex{},
		w:      w,
	}
}

type lineCore struct {
	level  zapcore.Level
	target string
	debug  bool

	mu *sync.Mutex
	w  io.Writer

	fields []zapcore.Field
}

func (c *lineCore) Enabled(l zapcore.Level) bool {
	return l >= c.level
}

func (c *lineCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(c.fields[:len(c.fields):len(c.fields)], fields...)
	return &clone
}

func (c *lineCore) Check(
	ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {

	if c.Enabled(ent.Level) && targetAllowed(c.target, ent.LoggerName) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *lineCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var buf bytes.Buffer

	if c.debug {
		location := ent.LoggerName
		line := 0
		if ent.Caller.Defined {
			location = filepath.Base(ent.Caller.File)
			line = ent.Caller.Line
		}
		fmt.Fprintf(&buf, "[%-16.16s:%04d] ", location, line)
	}

	fmt.Fprintf(&buf, "%s: %s", levelLetter(ent.Level), ent.Message)
	buf.WriteString(renderFields(c.fields, fields))
	buf.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write(buf.Bytes())
	return err
}

func (c *lineCore) Sync() error {
	return nil
}

func targetAllowed(target, name string) bool {
	if target == "" {
		return true
	}
	return name == target || strings.HasPrefix(name, target+".")
}

func levelLetter(l zapcore.Level) string {
	switch {
	case l >= zapcore.ErrorLevel:
		return "E"
	case l == zapcore.WarnLevel:
		return "W"
	case l == zapcore.InfoLevel:
		return "I"
	case l == zapcore.DebugLevel:
		return "D"
	default:
		return "T"
	}
}

func renderFields(contextFields, fields []zapcore.Field) string {
	if len(contextFields) == 0 && len(fields) == 0 {
		return ""
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range contextFields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}
	return b.String()
}
