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

// Package consumer implements the post-download pipeline: copy a completed
// torrent to the staging directory, move it to its destination, mark it
// processed in the engine and send a notification.
package consumer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/c2h5oh/datasize"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/transmissionctl/transmissionctl/core"
	"github.com/transmissionctl/transmissionctl/lib/email"
	"github.com/transmissionctl/transmissionctl/lib/transmission"
	"github.com/transmissionctl/transmissionctl/utils/fsutil"
	"github.com/transmissionctl/transmissionctl/utils/log"
	"github.com/transmissionctl/transmissionctl/utils/stringset"
)

// Config defines Consumer configuration. CopyTo and MoveTo must be existing
// directories when set.
type Config struct {
	CopyTo string `yaml:"copy_to"`
	MoveTo string `yaml:"move_to"`

	// RetryDelay is how long the worker sleeps after a temporary error
	// before retrying the whole batch.
	RetryDelay time.Duration `yaml:"retry_delay"`

	CopyBufferSize datasize.ByteSize `yaml:"copy_buffer_size"`
}

func (c Config) applyDefaults() Config {
	if c.RetryDelay == 0 {
		c.RetryDelay = 60 * time.Second
	}
	if c.CopyBufferSize == 0 {
		c.CopyBufferSize = 4 * datasize.MB
	}
	return c
}

// Consumer processes completed torrents with a single background worker.
// Processing is serial by design: copies are disk bound and concurrent
// copies would thrash.
type Consumer struct {
	config   Config
	client   transmission.Client
	notifier email.Sender
	template email.Template
	clk      clock.Clock
	stats    tally.Scope

	wake chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
	closed    atomic.Bool

	mu        sync.Mutex
	inProcess stringset.Set

	// Only the worker touches failed.
	failed stringset.Set
}

// New creates a Consumer and starts its worker. notifier may be nil to
// disable notifications.
func New(
	config Config,
	client transmission.Client,
	notifier email.Sender,
	template email.Template,
	clk clock.Clock,
	stats tally.Scope) (*Consumer, error) {

	config = config.applyDefaults()
	stats = stats.Tagged(map[string]string{"module": "consumer"})

	if config.CopyTo != "" && config.MoveTo != "" {
		// Anything left in the staging directory was orphaned by a crash
		// mid-consume. Moving it blindly could clobber a manual cleanup in
		// progress, so it is only reported.
		names, err := fsutil.ListAbandoned(config.CopyTo)
		if err != nil {
			return nil, fmt.Errorf("check %q for abandoned files: %s", config.CopyTo, err)
		}
		for _, name := range names {
			log.Errorf("Found an abandoned file in %s: %s", config.CopyTo, name)
		}
	}

	c := &Consumer{
		config:    config,
		client:    client,
		notifier:  notifier,
		template:  template,
		clk:       clk,
		stats:     stats,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		inProcess: stringset.New(),
		failed:    stringset.New(),
	}
	c.wg.Add(1)
	go c.worker()
	return c, nil
}

// Consume schedules a torrent for processing. Idempotent. Hashes scheduled
// after Stop are dropped: no worker is left to pick them up.
func (c *Consumer) Consume(hash string) {
	if c.closed.Load() {
		return
	}

	// The wake token is buffered under the same lock which adds the hash, so
	// a batch snapshot can tell fresh tokens from stale ones.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inProcess.Add(hash)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// InProcess returns a snapshot of the hashes scheduled for processing. The
// controller must take this snapshot before listing torrents, else it may
// re-dispatch a torrent the worker already picked up.
func (c *Consumer) InProcess() stringset.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProcess.Copy()
}

// Stop signals the worker and waits for it to park. An in-flight copy runs
// to completion. Idempotent.
func (c *Consumer) Stop() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.wg.Wait()
	})
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for {
		hashes := c.pending()
		if len(hashes) == 0 {
			select {
			case <-c.wake:
				continue
			case <-c.done:
				return
			}
		}

		retry := false
		for _, hash := range hashes {
			select {
			case <-c.done:
				return
			default:
			}
			if c.process(hash) {
				retry = true
				break
			}
		}
		if !retry {
			continue
		}

		timer := c.clk.Timer(c.config.RetryDelay)
		select {
		case <-timer.C:
		case <-c.wake:
			timer.Stop()
		case <-c.done:
			timer.Stop()
			return
		}
	}
}

// pending returns the hashes the next batch should process, in stable order.
func (c *Consumer) pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A wake buffered before this point only signals work the snapshot below
	// already observes. Dropping it keeps the token from surviving into the
	// retry select, where it would cut the retry delay short.
	select {
	case <-c.wake:
	default:
	}

	var hashes []string
	for hash := range c.inProcess {
		if !c.failed.Has(hash) {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	return hashes
}

// process handles one scheduled hash. Returns true when the batch hit a
// temporary error and should be retried later as a whole.
func (c *Consumer) process(hash string) (retry bool) {
	torrent, err := c.client.GetTorrent(hash)
	if err != nil {
		if transmission.IsTorrentNotFound(err) {
			c.cancel(hash, "it no longer exists")
			return false
		}
		log.Warnf("Postponing torrent processing: %s.", err)
		c.stats.Counter("temporary_errors").Inc(1)
		return true
	}
	if !torrent.Done() {
		c.cancel(torrent.Hash, "it has started re-downloading")
		return false
	}

	timer := c.stats.Timer("exec").Start()
	err = c.consumeTorrent(torrent)
	timer.Stop()

	if err != nil {
		c.failed.Add(hash)
	}
	c.mu.Lock()
	c.inProcess.Remove(hash)
	c.mu.Unlock()

	if err != nil {
		c.stats.Counter("consume_failures").Inc(1)
		log.Errorf("Failed to consume torrent %s (%s): %s", torrent.Name, hash, err)
		return false
	}
	c.stats.Counter("consume_successes").Inc(1)
	log.Infof("Torrent %s (%s) has been consumed.", torrent.Name, hash)
	return false
}

func (c *Consumer) cancel(hash, reason string) {
	c.mu.Lock()
	c.inProcess.Remove(hash)
	c.mu.Unlock()
	log.Warnf("Cancelling torrent %s processing: %s.", hash, reason)
}

func (c *Consumer) consumeTorrent(t *core.Torrent) error {
	roots := stringset.New()

	if c.config.CopyTo != "" {
		if err := c.copyFiles(t, roots); err != nil {
			return err
		}
		if c.config.MoveTo != "" {
			sorted := roots.ToSlice()
			sort.Strings(sorted)
			for _, root := range sorted {
				if err := moveWithoutOverwrite(
					c.config.CopyTo, c.config.MoveTo, root); err != nil {
					return err
				}
			}
		}
	}

	if err := c.client.SetProcessed(t.Hash); err != nil {
		return err
	}

	if c.notifier != nil {
		subject, body := c.template.Render(map[string]string{"name": t.Name})
		if err := c.notifier.Send(subject, body); err != nil {
			log.Errorf("Failed to send a notification about downloaded torrent: %s", err)
		}
	}
	return nil
}

func (c *Consumer) copyFiles(t *core.Torrent, roots stringset.Set) error {
	type item struct {
		rel  string
		root string
	}
	var items []item

	for _, file := range t.Files {
		if !file.Selected {
			continue
		}
		rel, root, err := fsutil.ValidateTorrentFileName(file.Name)
		if err != nil {
			return err
		}
		if hidden(rel) {
			log.Infof("Skipping hidden file %q of torrent %s.", file.Name, t.Name)
			continue
		}
		items = append(items, item{rel, root})
	}

	buf := make([]byte, c.config.CopyBufferSize)
	for _, item := range items {
		src := filepath.Join(t.DownloadDir, item.rel)
		dst := filepath.Join(c.config.CopyTo, item.rel)

		if dir := filepath.Dir(item.rel); dir != "." {
			if err := fsutil.CreateAllDirsFromBase(c.config.CopyTo, dir); err != nil {
				return err
			}
		}
		log.Debugf("Copying %q to %q...", src, dst)
		if err := fsutil.CopyFile(src, dst, buf); err != nil {
			return err
		}
		roots.Add(item.root)
	}
	return nil
}

func hidden(rel string) bool {
	for _, component := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(component, ".") {
			return true
		}
	}
	return false
}

// moveWithoutOverwrite renames srcDir/name into dstDir, prefixing the name
// with DUP_{n}. when the destination is occupied. Gives up after ten
// candidate names.
func moveWithoutOverwrite(srcDir, dstDir, name string) error {
	src := filepath.Join(srcDir, name)

	for n := 0; n <= 9; n++ {
		dstName := name
		if n > 0 {
			dstName = fmt.Sprintf("DUP_%d.%s", n, name)
		}
		dst := filepath.Join(dstDir, dstName)

		if _, err := os.Lstat(dst); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("move %q to %q: %s", src, dst, err)
		}

		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("move %q to %q: %s", src, dst, err)
		}
		log.Debugf("Moved %q to %q.", src, dst)
		return nil
	}
	return fmt.Errorf(
		"move %q to %q: all candidate names are occupied", src, dstDir)
}
