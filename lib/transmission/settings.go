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
package transmission

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/transmissionctl/transmissionctl/utils/fsutil"
)

// Settings is the subset of the engine's settings.json this daemon needs.
type Settings struct {
	DownloadDir               string `json:"download_dir"`
	RPCEnabled                bool   `json:"rpc_enabled"`
	RPCBindAddress            string `json:"rpc_bind_address"`
	RPCPort                   int    `json:"rpc_port"`
	RPCURL                    string `json:"rpc_url"`
	RPCAuthenticationRequired bool   `json:"rpc_authentication_required"`
	RPCUsername               string `json:"rpc_username"`
	RPCPlainPassword          string `json:"rpc_plain_password"`
}

// DefaultSettingsPath returns the engine's default settings.json location.
func DefaultSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine home directory: %s", err)
	}
	return filepath.Join(home, ".config", "transmission-daemon", "settings.json"), nil
}

// LoadSettings reads and validates the engine's settings file. The engine
// has emitted both dash-separated and underscore-separated keys over its
// history, so both spellings are accepted.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %s", path, err)
	}
	normalized := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		normalized[strings.ReplaceAll(key, "-", "_")] = value
	}
	data, err = json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %s", path, err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %s", path, err)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) validate() error {
	if !strings.HasPrefix(s.DownloadDir, "/") {
		return errors.New("invalid 'download-dir' value: it must be an absolute path")
	}
	if err := fsutil.CheckDirectory(s.DownloadDir); err != nil {
		return fmt.Errorf("invalid 'download-dir': %s", err)
	}
	if !s.RPCEnabled {
		return errors.New("RPC is disabled in config")
	}
	if strings.TrimSpace(s.RPCBindAddress) == "" {
		return errors.New("invalid 'rpc-bind-address' value: it mustn't be empty")
	}
	if s.RPCAuthenticationRequired && s.RPCPlainPassword == "" {
		return errors.New(
			"'rpc-plain-password' is a required option when authentication is enabled")
	}
	return nil
}

// RPCAddr builds the full RPC endpoint URL.
func (s *Settings) RPCAddr() string {
	url := fmt.Sprintf("http://%s:%d%s", s.RPCBindAddress, s.RPCPort, s.RPCURL)
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url + "rpc"
}
