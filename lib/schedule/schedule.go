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

// Package schedule implements the weekly torrent activity schedule.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Action defines what the schedule means for torrent activity.
type Action int

const (
	// StartOrPause starts torrents inside the scheduled periods and pauses
	// them outside.
	StartOrPause Action = iota + 1

	// PauseOrStart pauses torrents inside the scheduled periods and starts
	// them outside.
	PauseOrStart
)

func (a Action) String() string {
	switch a {
	case StartOrPause:
		return "start-or-pause"
	case PauseOrStart:
		return "pause-or-start"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction parses the command line representation of an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case StartOrPause.String():
		return StartOrPause, nil
	case PauseOrStart.String():
		return PauseOrStart, nil
	default:
		return 0, fmt.Errorf("invalid action: %s", s)
	}
}

// Active returns the desired torrent activity at time t: for StartOrPause
// torrents are active inside the scheduled periods, for PauseOrStart the
// meaning is inverted.
func (a Action) Active(periods WeekPeriods, t time.Time) bool {
	in := periods.Contains(t)
	if a == PauseOrStart {
		return !in
	}
	return in
}

// DayTime is a clock time within a day, in minutes since midnight.
type DayTime int

// NewDayTime composes a DayTime from wall clock components.
func NewDayTime(hour, minute int) DayTime {
	return DayTime(hour*60 + minute)
}

func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Period is a closed interval of day time: both endpoints are inside it.
type Period struct {
	Start DayTime
	End   DayTime
}

// WeekPeriods holds the scheduled periods for each weekday, indexed by the
// platform clock convention (Sunday = 0). Each day's list is sorted by start
// and the periods within a day are pairwise disjoint.
type WeekPeriods [7][]Period

// Contains returns whether t falls into one of the scheduled periods,
// endpoints included.
func (w WeekPeriods) Contains(t time.Time) bool {
	cur := NewDayTime(t.Hour(), t.Minute())
	for _, p := range w[int(t.Weekday())] {
		if p.Start > cur {
			break
		}
		if p.End < cur {
			continue
		}
		return true
	}
	return false
}

var _periodRegexp = regexp.MustCompile(
	`^\s*([1-7])(?:\s*-\s*([1-7]))?\s*/\s*(\d{1,2})\s*:\s*(\d{2})\s*-\s*(\d{1,2})\s*:\s*(\d{2})\s*$`)

// ParsePeriods parses a list of D[-D]/HH:MM-HH:MM period specifications into
// WeekPeriods. Days run 1-7 for Monday-Sunday. Rejected: a day range running
// backwards, hours above 24, minutes above 59, a start after its end, and
// periods which overlap within a day.
func ParsePeriods(specs []string) (WeekPeriods, error) {
	var week WeekPeriods

	for _, spec := range specs {
		m := _periodRegexp.FindStringSubmatch(spec)
		if m == nil {
			return week, fmt.Errorf("invalid period specification: %s", spec)
		}

		startDay := mustAtoi(m[1])
		endDay := startDay
		if m[2] != "" {
			endDay = mustAtoi(m[2])
			if endDay < startDay {
				return week, fmt.Errorf("invalid period of days in %q", spec)
			}
		}

		startHour, startMinute := mustAtoi(m[3]), mustAtoi(m[4])
		endHour, endMinute := mustAtoi(m[5]), mustAtoi(m[6])

		for _, hour := range []int{startHour, endHour} {
			if hour > 24 {
				return week, fmt.Errorf("invalid hour in %q period: %d", spec, hour)
			}
		}
		for _, minute := range []int{startMinute, endMinute} {
			if minute > 59 {
				return week, fmt.Errorf("invalid minute in %q period: %d", spec, minute)
			}
		}

		period := Period{
			Start: NewDayTime(startHour, startMinute),
			End:   NewDayTime(endHour, endMinute),
		}
		if period.Start > period.End {
			return week, fmt.Errorf("invalid period of time in %q", spec)
		}

		// Days are 1-7 Monday-Sunday, the week array is Sunday-first.
		for day := startDay; day <= endDay; day++ {
			week[day%7] = append(week[day%7], period)
		}
	}

	for d := range week {
		day := week[d]
		sort.Slice(day, func(i, j int) bool {
			return day[i].Start < day[j].Start
		})
		for i := 1; i < len(day); i++ {
			if day[i-1].End >= day[i].Start {
				return week, fmt.Errorf("periods must not overlap")
			}
		}
	}

	return week, nil
}

var _durationRegexp = regexp.MustCompile(`^([1-9]\d*)([mhd])$`)

// ParseDuration parses a N{m|h|d} duration specification.
func ParseDuration(s string) (time.Duration, error) {
	m := _durationRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time specification: %s", s)
	}
	n := time.Duration(mustAtoi(m[1]))
	switch m[2] {
	case "m":
		return n * time.Minute, nil
	case "h":
		return n * time.Hour, nil
	default:
		return n * 24 * time.Hour, nil
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("regexp permitted a non-numeric group %q: %s", s, err))
	}
	return n
}
