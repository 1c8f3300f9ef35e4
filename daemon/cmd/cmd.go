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

// Package cmd parses daemon CLI flags and runs the daemon.
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin"

	"github.com/transmissionctl/transmissionctl/lib/schedule"
	"github.com/transmissionctl/transmissionctl/utils/fsutil"
)

// Flags defines daemon CLI flags, parsed and validated.
type Flags struct {
	Action  schedule.Action
	Periods schedule.WeekPeriods

	CopyTo string
	MoveTo string

	SeedTimeLimit      time.Duration
	UploadRatioLimit   *float64
	FreeSpaceThreshold *int

	EmailFrom          string
	EmailErrors        string
	EmailNotifications string
	TemplatePath       string

	SettingsPath string
	ConfigPath   string

	Debug int
}

// ParseFlags parses and validates daemon CLI flags. Error messages are user
// facing: main prints them to stderr verbatim.
func ParseFlags(args []string) (*Flags, error) {
	app := kingpin.New(
		"transmissionctl", "Control daemon for the Transmission BitTorrent engine.")

	action := app.Flag(
		"action", "Start or pause torrents according to the time periods: start-or-pause or pause-or-start.").
		Short('a').PlaceHolder("ACTION").String()
	periods := app.Flag(
		"period", "Time period in D[-D]/HH:MM-HH:MM format. May be specified multiple times.").
		Short('p').PlaceHolder("PERIOD").Strings()
	copyTo := app.Flag(
		"copy-to", "Directory to copy the downloaded torrents to.").
		Short('c').PlaceHolder("PATH").String()
	moveTo := app.Flag(
		"move-to", "Directory to move the copied torrents to.").
		Short('m').PlaceHolder("PATH").String()
	seedTimeLimit := app.Flag(
		"seed-time-limit", "Maximum torrent seeding time in N{m|h|d} format.").
		Short('l').PlaceHolder("TIME").String()
	freeSpaceThreshold := app.Flag(
		"free-space-threshold", "Remove processed torrents when free disk space drops below the specified percentage.").
		Short('s').PlaceHolder("PERCENT").String()
	uploadRatioLimit := app.Flag(
		"upload-ratio-limit", "Remove processed torrents when their upload ratio reaches the limit.").
		PlaceHolder("RATIO").String()
	emailFrom := app.Flag(
		"email-from", "Email address to send mails from.").
		Short('f').PlaceHolder("ADDRESS").String()
	emailErrors := app.Flag(
		"email-errors", "Email address to send error reports to.").
		Short('e').PlaceHolder("ADDRESS").String()
	emailNotifications := app.Flag(
		"email-notifications", "Email address to send notifications to.").
		Short('n').PlaceHolder("ADDRESS").String()
	templatePath := app.Flag(
		"torrent-downloaded-email-template", "Torrent downloaded notification email template path.").
		Short('t').PlaceHolder("PATH").String()
	settingsPath := app.Flag(
		"transmission-settings", "Transmission daemon settings.json path.").
		PlaceHolder("PATH").String()
	configPath := app.Flag(
		"config", "Daemon configuration file path.").
		PlaceHolder("PATH").String()
	debug := app.Flag(
		"debug", "Increase the logging verbosity. May be specified multiple times.").
		Short('d').Counter()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	flags := &Flags{
		CopyTo:             *copyTo,
		MoveTo:             *moveTo,
		EmailFrom:          *emailFrom,
		EmailErrors:        *emailErrors,
		EmailNotifications: *emailNotifications,
		TemplatePath:       *templatePath,
		SettingsPath:       *settingsPath,
		ConfigPath:         *configPath,
		Debug:              *debug,
	}

	if *action != "" {
		parsed, err := schedule.ParseAction(*action)
		if err != nil {
			return nil, fmt.Errorf("Invalid action: %s", *action)
		}
		if len(*periods) == 0 {
			return nil, errors.New("Action must be specified with time periods")
		}
		flags.Action = parsed
	} else if len(*periods) != 0 {
		return nil, errors.New("Time periods must be specified with action")
	}
	if len(*periods) != 0 {
		week, err := schedule.ParsePeriods(*periods)
		if err != nil {
			return nil, err
		}
		flags.Periods = week
	}

	for _, path := range []string{*copyTo, *moveTo} {
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			return nil, errors.New(
				"You must specify only absolute paths in command line arguments")
		}
		if err := fsutil.CheckDirectory(path); err != nil {
			return nil, err
		}
	}

	if *seedTimeLimit != "" {
		limit, err := schedule.ParseDuration(*seedTimeLimit)
		if err != nil {
			return nil, fmt.Errorf("Invalid seed time limit value: %s", *seedTimeLimit)
		}
		flags.SeedTimeLimit = limit
	}

	if *freeSpaceThreshold != "" {
		threshold, err := strconv.Atoi(*freeSpaceThreshold)
		if err != nil || threshold < 0 || threshold > 100 {
			return nil, fmt.Errorf(
				"Invalid free space threshold value: %s", *freeSpaceThreshold)
		}
		flags.FreeSpaceThreshold = &threshold
	}

	if *uploadRatioLimit != "" {
		ratio, err := strconv.ParseFloat(*uploadRatioLimit, 64)
		if err != nil || ratio <= 0 {
			return nil, fmt.Errorf(
				"Invalid upload ratio limit value: %s", *uploadRatioLimit)
		}
		flags.UploadRatioLimit = &ratio
	}

	if (*emailErrors != "" || *emailNotifications != "") && *emailFrom == "" {
		return nil, errors.New(
			"--email-from must be specified when configuring email notifications")
	}

	return flags, nil
}
