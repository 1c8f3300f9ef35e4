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
package diskusage

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/transmissionctl/transmissionctl/utils/log"
)

// Runner runs an external command and returns its stdout.
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) ([]byte, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// The first stderr line is usually the one that matters.
			line := strings.SplitN(strings.TrimSpace(stderr.String()), "\n", 2)[0]
			return nil, fmt.Errorf("`%s` failed with error: %s", cmdline, line)
		}
		return nil, fmt.Errorf("execute `%s`: %s", cmdline, err)
	}
	return stdout.Bytes(), nil
}

// Usage describes how full the device backing a path is.
type Usage struct {
	Device  string
	Percent int
}

// Prober reports device usage for a local path.
type Prober interface {
	Usage(path string) (Usage, error)
}

// NewProber returns a Prober which shells out to df.
func NewProber() Prober {
	return &prober{NewRunner()}
}

type prober struct {
	runner Runner
}

var _dfRegexp = regexp.MustCompile(
	`^\s*(?P<device>.*?)(?:\s+\d+){3}\s+(?P<use>\d{1,2})%`)

func (p *prober) Usage(path string) (Usage, error) {
	// df prints different output for "dir" and "dir/".
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	out, err := p.runner.Run("df", path)
	if err != nil {
		return Usage{}, err
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		return Usage{}, parseError(out)
	}
	m := _dfRegexp.FindStringSubmatch(lines[1])
	if m == nil {
		return Usage{}, parseError(out)
	}
	percent, err := strconv.Atoi(m[2])
	if err != nil {
		return Usage{}, parseError(out)
	}
	return Usage{Device: m[1], Percent: percent}, nil
}

func parseError(out []byte) error {
	log.Debugf("Unexpected `df` output:\n%s", out)
	return fmt.Errorf("unexpected output from `df`")
}
