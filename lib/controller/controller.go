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

// Package controller reconciles engine state against the configured policy
// once per tick: schedule-driven start/stop, dispatch of completed torrents
// to the consumer, seeding limits and free space cleanup.
package controller

import (
	"sort"
	"time"

	"github.com/uber-go/tally"

	"github.com/transmissionctl/transmissionctl/core"
	"github.com/transmissionctl/transmissionctl/lib/schedule"
	"github.com/transmissionctl/transmissionctl/lib/transmission"
	"github.com/transmissionctl/transmissionctl/utils/diskusage"
	"github.com/transmissionctl/transmissionctl/utils/log"
	"github.com/transmissionctl/transmissionctl/utils/stringset"
)

// State is the desired ambient torrent activity for the current tick.
type State int

const (
	// Active means torrents should be running.
	Active State = iota + 1

	// Paused means torrents should be stopped.
	Paused

	// Manual means the user is in charge: no start/stop commands are
	// issued. Consume dispatch, seeding limits and cleanup still apply.
	Manual
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	default:
		return "manual"
	}
}

// Consumer schedules post-download processing.
type Consumer interface {
	Consume(hash string)
	InProcess() stringset.Set
}

// Config defines Controller configuration.
type Config struct {
	// ManualModeResetPeriod caps how long engine-side manual mode may stay
	// engaged before the controller forcibly clears it. A safety valve for
	// a user who forgot to disengage it.
	ManualModeResetPeriod time.Duration `yaml:"manual_mode_reset_period"`
}

func (c Config) applyDefaults() Config {
	if c.ManualModeResetPeriod == 0 {
		c.ManualModeResetPeriod = 24 * time.Hour
	}
	return c
}

// Policy holds the operational policy the controller enforces. Zero values
// disable the respective rule.
type Policy struct {
	// Action and Periods define the weekly activity schedule. A zero
	// Action leaves torrent activity entirely to the user.
	Action  schedule.Action
	Periods schedule.WeekPeriods

	// DownloadDir is the engine's download directory; cleanup only removes
	// torrents stored directly in it.
	DownloadDir string

	SeedTimeLimit    time.Duration
	UploadRatioLimit *float64

	// FreeSpaceThreshold triggers cleanup when the download filesystem has
	// this percentage of free space or less.
	FreeSpaceThreshold *int
}

// Controller runs the per-tick reconciliation.
type Controller struct {
	config   Config
	policy   Policy
	client   transmission.Client
	consumer Consumer
	prober   diskusage.Prober
	stats    tally.Scope

	manualSince *time.Time
	prevState   State
}

// New creates a Controller.
func New(
	config Config,
	policy Policy,
	client transmission.Client,
	consumer Consumer,
	prober diskusage.Prober,
	stats tally.Scope) *Controller {

	return &Controller{
		config:   config.applyDefaults(),
		policy:   policy,
		client:   client,
		consumer: consumer,
		prober:   prober,
		stats:    stats.Tagged(map[string]string{"module": "controller"}),
	}
}

// Tick runs one reconciliation pass. Individual engine command failures are
// logged and iteration continues; only the tick's top level reads abort it.
func (c *Controller) Tick(now time.Time) error {
	state, err := c.decideState(now)
	if err != nil {
		return err
	}
	if state != c.prevState {
		log.Infof("Controller state: %s.", state)
		c.prevState = state
	}

	// The in-process snapshot must be taken before the torrent list:
	// reversed, a torrent could finish and get picked up by the consumer
	// between the two reads, and the stale list would re-dispatch it.
	inProcess := c.consumer.InProcess()
	torrents, err := c.client.GetTorrents()
	if err != nil {
		return err
	}

	var removable []*core.Torrent
	for _, torrent := range torrents {
		switch state {
		case Active:
			if torrent.Status == core.StatusPaused {
				log.Infof("Starting torrent %s (%s)...", torrent.Name, torrent.Hash)
				if err := c.client.Start(torrent.Hash); err != nil {
					log.Errorf("Failed to start torrent %s: %s", torrent.Hash, err)
				}
			}
		case Paused:
			if torrent.Status != core.StatusPaused {
				log.Infof("Pausing torrent %s (%s)...", torrent.Name, torrent.Hash)
				if err := c.client.Stop(torrent.Hash); err != nil {
					log.Errorf("Failed to pause torrent %s: %s", torrent.Hash, err)
				}
			}
		}

		if !torrent.Done() || inProcess.Has(torrent.Hash) {
			continue
		}

		if !torrent.Processed() {
			log.Debugf("Scheduling torrent %s (%s) for consuming...",
				torrent.Name, torrent.Hash)
			c.consumer.Consume(torrent.Hash)
			continue
		}

		if c.policy.SeedTimeLimit > 0 &&
			now.Unix()-torrent.DoneTime() >= int64(c.policy.SeedTimeLimit.Seconds()) {
			c.remove(torrent, "its seeding time limit is reached")
			continue
		}
		if c.policy.UploadRatioLimit != nil &&
			torrent.UploadRatio >= *c.policy.UploadRatioLimit {
			c.remove(torrent, "its upload ratio limit is reached")
			continue
		}

		removable = append(removable, torrent)
	}

	return c.cleanup(removable)
}

func (c *Controller) decideState(now time.Time) (State, error) {
	if c.policy.Action == 0 {
		return Manual, nil
	}

	manual, err := c.client.IsManualMode()
	if err != nil {
		return 0, err
	}
	if manual {
		if c.manualSince == nil {
			since := now
			c.manualSince = &since
		}
		if now.Sub(*c.manualSince) <= c.config.ManualModeResetPeriod {
			return Manual, nil
		}
		log.Errorf("Manual mode has been engaged for more than %s. Disabling it.",
			c.config.ManualModeResetPeriod)
		if err := c.client.SetManualMode(false); err != nil {
			return 0, err
		}
	}
	c.manualSince = nil

	if c.policy.Action.Active(c.policy.Periods, now) {
		return Active, nil
	}
	return Paused, nil
}

func (c *Controller) remove(torrent *core.Torrent, reason string) {
	log.Infof("Removing torrent %s (%s): %s.", torrent.Name, torrent.Hash, reason)
	if err := c.client.Remove(torrent.Hash); err != nil {
		log.Errorf("Failed to remove torrent %s: %s", torrent.Hash, err)
		return
	}
	c.stats.Counter("removes").Inc(1)
}

// cleanup frees disk space by removing processed torrents, oldest finished
// first, until the free space threshold is satisfied.
func (c *Controller) cleanup(removable []*core.Torrent) error {
	if c.policy.FreeSpaceThreshold == nil {
		return nil
	}

	usage, err := c.prober.Usage(c.policy.DownloadDir)
	if err != nil {
		return err
	}
	free := 100 - usage.Percent
	if free > *c.policy.FreeSpaceThreshold {
		log.Debugf("Free space on %s: %d%%.", usage.Device, free)
		return nil
	}
	log.Infof("Free space on %s is below %d%%. Cleaning up...",
		usage.Device, *c.policy.FreeSpaceThreshold)

	var candidates []*core.Torrent
	for _, torrent := range removable {
		if torrent.DownloadDir == c.policy.DownloadDir {
			candidates = append(candidates, torrent)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DoneTime() < candidates[j].DoneTime()
	})

	for _, torrent := range candidates {
		c.remove(torrent, "freeing disk space")

		if usage, err = c.prober.Usage(c.policy.DownloadDir); err != nil {
			return err
		}
		if 100-usage.Percent > *c.policy.FreeSpaceThreshold {
			return nil
		}
	}
	log.Warnf("Nothing left to remove, but free space on %s is still below %d%%.",
		usage.Device, *c.policy.FreeSpaceThreshold)
	return nil
}
