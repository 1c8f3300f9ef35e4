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
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func newTestLogger(config Config) (*zap.SugaredLogger, *lockedBuffer) {
	w := &lockedBuffer{}
	config.Writer = w
	return zap.New(NewLineCore(config)).Sugar(), w
}

func TestLineCoreFormat(t *testing.T) {
	require := require.New(t)

	logger, out := newTestLogger(Config{Level: zapcore.InfoLevel})

	logger.Infof("hello %s", "world")
	logger.Warnf("look out")
	logger.Errorf("it broke")
	logger.Debugf("invisible")

	require.Equal([]string{
		"I: hello world",
		"W: look out",
		"E: it broke",
	}, out.Lines())
}

func TestLineCoreDebugPrefix(t *testing.T) {
	require := require.New(t)

	w := &lockedBuffer{}
	logger := zap.New(
		NewLineCore(Config{Level: zapcore.DebugLevel, Writer: w}),
		zap.AddCaller()).Sugar()

	logger.Debugf("details")

	lines := w.Lines()
	require.Len(lines, 1)
	require.Regexp(`^\[core_test\.go\s*:\d{4}\] D: details$`, lines[0])
}

func TestLineCoreTraceLevel(t *testing.T) {
	require := require.New(t)

	// Trace is below debug, so the caller prefix is always on.
	w := &lockedBuffer{}
	logger := zap.New(
		NewLineCore(Config{Level: TraceLevel, Writer: w}),
		zap.AddCaller())

	if ce := logger.Check(TraceLevel, "fine detail"); ce != nil {
		ce.Write()
	}
	logger.Sugar().Debugf("coarse detail")

	lines := w.Lines()
	require.Len(lines, 2)
	require.Regexp(`^\[core_test\.go\s*:\d{4}\] T: fine detail$`, lines[0])
	require.Regexp(`^\[core_test\.go\s*:\d{4}\] D: coarse detail$`, lines[1])
}

func TestLineCoreTargetFilter(t *testing.T) {
	require := require.New(t)

	logger, out := newTestLogger(Config{
		Level:  zapcore.InfoLevel,
		Target: "transmissionctl",
	})

	logger.Desugar().Named("transmissionctl").Sugar().Infof("root")
	logger.Desugar().Named("transmissionctl").Named("consumer").Sugar().Infof("nested")
	logger.Desugar().Named("transmissionctlX").Sugar().Infof("lookalike")
	logger.Infof("anonymous")

	require.Equal([]string{"I: root", "I: nested"}, out.Lines())
}

func TestLineCoreFields(t *testing.T) {
	require := require.New(t)

	logger, out := newTestLogger(Config{Level: zapcore.InfoLevel})

	logger.With("torrent", "abc", "files", 3).Infof("consuming")

	require.Equal([]string{"I: consuming files=3 torrent=abc"}, out.Lines())
}
