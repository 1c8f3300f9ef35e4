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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const errorEmailSubject = "Transmission controller errors"

// Sender delivers a rendered message. Satisfied by email.Mailer; declared
// here so the logger doesn't depend on the email package it serves.
type Sender interface {
	Send(subject, body string) error
}

// BufferConfig defines ErrorBuffer timing.
type BufferConfig struct {
	// FirstDelay is how long the first error of a batch waits before the
	// batch is sent, so that a burst of errors collapses into one email.
	FirstDelay time.Duration `yaml:"first_delay"`

	// MinSendingPeriod is the minimum spacing between two emails.
	MinSendingPeriod time.Duration `yaml:"min_sending_period"`
}

func (c BufferConfig) applyDefaults() BufferConfig {
	if c.FirstDelay == 0 {
		c.FirstDelay = time.Minute
	}
	if c.MinSendingPeriod == 0 {
		c.MinSendingPeriod = time.Hour
	}
	return c
}

// ErrorBuffer batches error records and emails them as a single message. A
// lazy flush worker is spawned on the first buffered error and exits once the
// buffer drains. Send failures are reported through a fallback stderr logger,
// never back into the buffer.
type ErrorBuffer struct {
	config   BufferConfig
	clk      clock.Clock
	sender   Sender
	fallback *zap.SugaredLogger

	wake chan struct{}
	wg   sync.WaitGroup

	mu            sync.Mutex
	errors        []string
	flushTime     *time.Time
	lastFlushTime *time.Time
	running       bool
	closed        bool
}

// NewErrorBuffer creates a new ErrorBuffer sending through sender. fallback
// must not write into the buffer.
func NewErrorBuffer(
	config BufferConfig,
	clk clock.Clock,
	sender Sender,
	fallback *zap.SugaredLogger) *ErrorBuffer {

	return &ErrorBuffer{
		config:   config.applyDefaults(),
		clk:      clk,
		sender:   sender,
		fallback: fallback,
		wake:     make(chan struct{}, 1),
	}
}

// Append adds an error message to the current batch.
func (b *ErrorBuffer) Append(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.errors = append(b.errors, msg)
	if len(b.errors) > 1 {
		// A flush is already pending.
		return
	}

	flushTime := b.clk.Now().Add(b.config.FirstDelay)
	if b.lastFlushTime != nil {
		if earliest := b.lastFlushTime.Add(b.config.MinSendingPeriod); earliest.After(flushTime) {
			flushTime = earliest
		}
	}
	b.flushTime = &flushTime

	if !b.running && !b.closed {
		b.running = true
		b.wg.Add(1)
		go b.worker()
	}
}

// Close flushes any pending batch and stops the flush worker. Idempotent.
func (b *ErrorBuffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	b.wg.Wait()

	// Whatever arrived after the worker drained goes out now rather than
	// being lost with the process.
	b.flush()
}

func (b *ErrorBuffer) worker() {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		if b.flushTime == nil {
			b.running = false
			b.mu.Unlock()
			return
		}
		deadline := *b.flushTime
		closed := b.closed
		b.mu.Unlock()

		if !closed {
			if d := deadline.Sub(b.clk.Now()); d > 0 {
				timer := b.clk.Timer(d)
				select {
				case <-timer.C:
				case <-b.wake:
					timer.Stop()
				}
				// Re-check the deadline: the wake may mean shutdown, and
				// the timer may have been re-armed under it.
				continue
			}
		}
		b.flush()
	}
}

func (b *ErrorBuffer) flush() {
	b.mu.Lock()
	errors := b.errors
	b.errors = nil
	b.flushTime = nil
	if len(errors) > 0 {
		now := b.clk.Now()
		b.lastFlushTime = &now
	}
	b.mu.Unlock()

	if len(errors) == 0 {
		return
	}

	var body strings.Builder
	body.WriteString("The following errors has occurred:\n")
	for _, e := range errors {
		fmt.Fprintf(&body, "* %s\n", e)
	}
	if err := b.sender.Send(errorEmailSubject, body.String()); err != nil {
		b.fallback.Errorf("Failed to send error email: %s", err)
	}
}

// NewEmailCore creates a core forwarding error records into buffer. Intended
// to be teed with the stderr core.
func NewEmailCore(buffer *ErrorBuffer) zapcore.Core {
	return &emailCore{buffer: buffer}
}

type emailCore struct {
	buffer *ErrorBuffer
	fields []zapcore.Field
}

func (c *emailCore) Enabled(l zapcore.Level) bool {
	return l >= zapcore.ErrorLevel
}

func (c *emailCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(c.fields[:len(c.fields):len(c.fields)], fields...)
	return &clone
}

func (c *emailCore) Check(
	ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {

	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *emailCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.buffer.Append(ent.Message + renderFields(c.fields, fields))
	return nil
}

func (c *emailCore) Sync() error {
	return nil
}
