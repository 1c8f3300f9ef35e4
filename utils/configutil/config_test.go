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
package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/validator.v2"
)

type configuration struct {
	ListenAddress string        `yaml:"listen_address" validate:"nonzero"`
	Timeout       time.Duration `yaml:"timeout"`
	Servers       []string      `yaml:"servers" validate:"nonzero"`
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	path := writeConfig(t, `
listen_address: localhost:4385
timeout: 30s
servers:
    - somewhere:8090
    - somewhere-else:8010
`)

	var config configuration
	require.NoError(Load(path, &config))
	require.Equal("localhost:4385", config.ListenAddress)
	require.Equal(30*time.Second, config.Timeout)
	require.Equal([]string{"somewhere:8090", "somewhere-else:8010"}, config.Servers)
}

func TestLoadMissingFile(t *testing.T) {
	var config configuration
	require.Error(t, Load(filepath.Join(t.TempDir(), "no-config.yaml"), &config))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "listen_address: [just not\na mapping")

	var config configuration
	require.Error(t, Load(path, &config))
}

func TestLoadValidation(t *testing.T) {
	require := require.New(t)

	path := writeConfig(t, `
listen_address:
servers:
`)

	var config configuration
	err := Load(path, &config)
	require.Error(err)

	verr, ok := err.(ValidationError)
	require.True(ok)
	require.Equal(
		validator.ErrorArray{validator.ErrZeroValue}, verr.ErrForField("ListenAddress"))
	require.Equal(
		validator.ErrorArray{validator.ErrZeroValue}, verr.ErrForField("Servers"))
}
