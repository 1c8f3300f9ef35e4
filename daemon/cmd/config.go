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
package cmd

import (
	"time"

	"github.com/transmissionctl/transmissionctl/lib/consumer"
	"github.com/transmissionctl/transmissionctl/lib/controller"
	"github.com/transmissionctl/transmissionctl/lib/transmission"
	"github.com/transmissionctl/transmissionctl/metrics"
	"github.com/transmissionctl/transmissionctl/utils/log"
)

// Config defines the optional daemon YAML configuration.
type Config struct {
	// TickInterval is the reconciliation period.
	TickInterval time.Duration `yaml:"tick_interval"`

	RPC        transmission.Config `yaml:"rpc"`
	Consumer   consumer.Config     `yaml:"consumer"`
	Controller controller.Config   `yaml:"controller"`
	Email      log.BufferConfig    `yaml:"email"`
	Metrics    metrics.Config      `yaml:"metrics"`
	Logging    LoggingConfig       `yaml:"logging"`
}

// LoggingConfig overrides logging defaults. The -d flag wins when it asks for
// a more verbose level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

func (c Config) applyDefaults() Config {
	if c.TickInterval == 0 {
		c.TickInterval = 5 * time.Second
	}
	return c
}
