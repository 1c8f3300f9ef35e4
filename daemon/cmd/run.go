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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/transmissionctl/transmissionctl/lib/consumer"
	"github.com/transmissionctl/transmissionctl/lib/controller"
	"github.com/transmissionctl/transmissionctl/lib/email"
	"github.com/transmissionctl/transmissionctl/lib/transmission"
	"github.com/transmissionctl/transmissionctl/metrics"
	"github.com/transmissionctl/transmissionctl/utils/configutil"
	"github.com/transmissionctl/transmissionctl/utils/diskusage"
	"github.com/transmissionctl/transmissionctl/utils/log"
)

const _loggerName = "transmissionctl"

// Errors during the first minute of process life are logged at Warn: after a
// reboot the engine may not have opened its RPC port yet, and alerting on
// that would cascade into error emails on every boot.
const _startupGracePeriod = time.Minute

// Run runs the daemon until a termination signal arrives.
func Run(flags *Flags) error {
	var config Config
	if flags.ConfigPath != "" {
		if err := configutil.Load(flags.ConfigPath, &config); err != nil {
			return fmt.Errorf("unable to load configuration: %s", err)
		}
	}
	config = config.applyDefaults()

	settingsPath := flags.SettingsPath
	if settingsPath == "" {
		var err error
		if settingsPath, err = transmission.DefaultSettingsPath(); err != nil {
			return err
		}
	}
	settings, err := transmission.LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	var username, password string
	if settings.RPCAuthenticationRequired {
		username = settings.RPCUsername
		password = settings.RPCPlainPassword
	}
	client := transmission.NewHTTPClient(config.RPC, settings.RPCAddr(), username, password)

	template := email.DefaultDownloadedTemplate()
	if flags.TemplatePath != "" {
		if template, err = email.LoadTemplate(flags.TemplatePath); err != nil {
			return fmt.Errorf("Error while reading email template: %s", err)
		}
	}

	level, err := logLevel(flags.Debug, config.Logging)
	if err != nil {
		return err
	}
	target := _loggerName
	if flags.Debug >= 3 {
		target = ""
	}

	clk := clock.New()

	core := log.NewLineCore(log.Config{Level: level, Target: target})
	var errorBuffer *log.ErrorBuffer
	if flags.EmailErrors != "" {
		mailer, err := email.NewMailer(flags.EmailFrom, flags.EmailErrors)
		if err != nil {
			return err
		}
		// The fallback writes straight to stderr: a send failure logged
		// through the tee would feed the buffer it failed to flush.
		fallback := zap.New(log.NewLineCore(log.Config{Level: level})).Sugar()
		errorBuffer = log.NewErrorBuffer(config.Email, clk, mailer, fallback)
		defer errorBuffer.Close()
		core = zapcore.NewTee(core, log.NewEmailCore(errorBuffer))
	}
	log.ConfigureLogger(core)
	log.SetName(_loggerName)
	defer log.Sync()

	stats, closer, err := metrics.New(config.Metrics)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %s", err)
	}
	defer closer.Close()

	var notifier email.Sender
	if flags.EmailNotifications != "" {
		mailer, err := email.NewMailer(flags.EmailFrom, flags.EmailNotifications)
		if err != nil {
			return err
		}
		notifier = mailer
	}

	consumerConfig := config.Consumer
	consumerConfig.CopyTo = flags.CopyTo
	consumerConfig.MoveTo = flags.MoveTo
	cons, err := consumer.New(consumerConfig, client, notifier, template, clk, stats)
	if err != nil {
		return err
	}

	policy := controller.Policy{
		Action:             flags.Action,
		Periods:            flags.Periods,
		DownloadDir:        settings.DownloadDir,
		SeedTimeLimit:      flags.SeedTimeLimit,
		UploadRatioLimit:   flags.UploadRatioLimit,
		FreeSpaceThreshold: flags.FreeSpaceThreshold,
	}
	ctl := controller.New(
		config.Controller, policy, client, cons, diskusage.NewProber(), stats)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	ticker := clk.Ticker(config.TickInterval)
	defer ticker.Stop()

	start := clk.Now()
	log.Infof("Starting the controller with %s tick interval...", config.TickInterval)
	for {
		select {
		case now := <-ticker.C:
			stats.Counter("ticks").Inc(1)
			timer := stats.Timer("tick").Start()
			err := ctl.Tick(now)
			timer.Stop()
			if err != nil {
				stats.Counter("tick_failures").Inc(1)
				if clk.Now().Sub(start) < _startupGracePeriod {
					log.Warnf("Controller tick failed: %s", err)
				} else {
					log.Errorf("Controller tick failed: %s", err)
				}
			}
		case sig := <-signals:
			log.Infof("Got %s signal, exiting...", sig)
			cons.Stop()
			return nil
		}
	}
}

// logLevel composes the configured log level with the -d counter; the more
// verbose of the two wins.
func logLevel(debug int, config LoggingConfig) (zapcore.Level, error) {
	level := zapcore.InfoLevel
	if config.Level != "" {
		if err := level.Set(config.Level); err != nil {
			return 0, fmt.Errorf("invalid logging level: %s", config.Level)
		}
	}
	switch {
	case debug >= 2:
		if log.TraceLevel < level {
			level = log.TraceLevel
		}
	case debug == 1:
		if zapcore.DebugLevel < level {
			level = zapcore.DebugLevel
		}
	}
	return level, nil
}
