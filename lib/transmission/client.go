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

// Package transmission implements a client of the Transmission JSON RPC.
package transmission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/transmissionctl/transmissionctl/core"
	"github.com/transmissionctl/transmissionctl/utils/log"
)

const sessionIDHeader = "X-Transmission-Session-Id"

// Client performs RPC calls against the engine.
type Client interface {
	IsManualMode() (bool, error)
	SetManualMode(enabled bool) error
	GetTorrents() ([]*core.Torrent, error)
	GetTorrent(hash string) (*core.Torrent, error)
	Start(hash string) error
	Stop(hash string) error
	SetProcessed(hash string) error
	Remove(hash string) error
}

// Config defines HTTPClient configuration.
type Config struct {
	// Timeout is the total per-call deadline. Never lowered below 10s: the
	// engine can be slow to answer while checking torrents.
	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) applyDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Timeout < 10*time.Second {
		c.Timeout = 10 * time.Second
	}
	return c
}

// HTTPClient is the real Client. Safe for concurrent use: the session id is
// refreshed under an RWMutex, and concurrent 409s may both refresh it (last
// writer wins, the engine accepts any id it issued).
type HTTPClient struct {
	url      string
	username string
	password string
	client   *http.Client

	mu        sync.RWMutex
	sessionID string
}

// NewHTTPClient creates a new HTTPClient for the RPC endpoint at url.
// username and password may be empty if the engine doesn't require
// authentication.
func NewHTTPClient(config Config, url, username, password string) *HTTPClient {
	config = config.applyDefaults()
	return &HTTPClient{
		url:      url,
		username: username,
		password: password,
		client:   &http.Client{Timeout: config.Timeout},
	}
}

// IsManualMode returns whether the user has engaged manual mode on the
// engine. Transported in the alt-speed-enabled session flag.
func (c *HTTPClient) IsManualMode() (bool, error) {
	var result struct {
		AltSpeedEnabled bool `json:"alt-speed-enabled"`
	}
	if err := c.call("session-get", struct{}{}, &result); err != nil {
		return false, err
	}
	return result.AltSpeedEnabled, nil
}

// SetManualMode sets the engine's manual mode flag.
func (c *HTTPClient) SetManualMode(enabled bool) error {
	args := map[string]interface{}{"alt-speed-enabled": enabled}
	return c.call("session-set", args, &struct{}{})
}

// GetTorrents returns a snapshot of all torrents, without file listings.
func (c *HTTPClient) GetTorrents() ([]*core.Torrent, error) {
	return c.getTorrents(nil, false)
}

// GetTorrent returns a snapshot of one torrent, with its file listing.
func (c *HTTPClient) GetTorrent(hash string) (*core.Torrent, error) {
	torrents, err := c.getTorrents([]string{hash}, true)
	if err != nil {
		return nil, err
	}
	switch len(torrents) {
	case 0:
		return nil, &RPCError{
			Method:   "torrent-get",
			Msg:      fmt.Sprintf("torrent %s doesn't exist", hash),
			NotFound: true,
		}
	case 1:
		return torrents[0], nil
	default:
		return nil, &ProtocolError{
			Method: "torrent-get", Msg: "got a few torrents when requested only one"}
	}
}

// Start starts a torrent.
func (c *HTTPClient) Start(hash string) error {
	args := map[string]interface{}{"ids": []string{hash}}
	return c.call("torrent-start", args, &struct{}{})
}

// Stop pauses a torrent.
func (c *HTTPClient) Stop(hash string) error {
	args := map[string]interface{}{"ids": []string{hash}}
	return c.call("torrent-stop", args, &struct{}{})
}

// SetProcessed marks a torrent as consumed. The engine has no custom
// metadata surface, so the marker travels in the downloadLimit field.
func (c *HTTPClient) SetProcessed(hash string) error {
	args := map[string]interface{}{
		"ids":           []string{hash},
		"downloadLimit": core.ProcessedMarker,
	}
	return c.call("torrent-set", args, &struct{}{})
}

// Remove removes a torrent along with its data.
func (c *HTTPClient) Remove(hash string) error {
	args := map[string]interface{}{
		"ids":               []string{hash},
		"delete-local-data": true,
	}
	return c.call("torrent-remove", args, &struct{}{})
}

type torrentInfo struct {
	HashString    string  `json:"hashString"`
	Name          string  `json:"name"`
	DownloadDir   string  `json:"downloadDir"`
	Status        int     `json:"status"`
	AddedDate     int64   `json:"addedDate"`
	DoneDate      int64   `json:"doneDate"`
	LeftUntilDone uint64  `json:"leftUntilDone"`
	Wanted        []bool  `json:"wanted"`
	UploadRatio   float64 `json:"uploadRatio"`
	DownloadLimit int64   `json:"downloadLimit"`

	Files *[]struct {
		Name string `json:"name"`
	} `json:"files"`
	FileStats *[]struct {
		Wanted bool `json:"wanted"`
	} `json:"fileStats"`
}

func (c *HTTPClient) getTorrents(hashes []string, withFiles bool) ([]*core.Torrent, error) {
	const method = "torrent-get"

	fields := []string{
		"hashString", "name", "downloadDir", "status", "addedDate", "doneDate",
		"leftUntilDone", "wanted", "downloadLimit", "uploadRatio",
	}
	if withFiles {
		fields = append(fields, "files", "fileStats")
	}

	args := map[string]interface{}{"fields": fields}
	if hashes != nil {
		args["ids"] = hashes
	}

	var result struct {
		Torrents []torrentInfo `json:"torrents"`
	}
	if err := c.call(method, args, &result); err != nil {
		return nil, err
	}

	torrents := make([]*core.Torrent, 0, len(result.Torrents))
	for _, info := range result.Torrents {
		torrent := &core.Torrent{
			Hash:          info.HashString,
			Name:          info.Name,
			DownloadDir:   info.DownloadDir,
			Status:        core.TorrentStatus(info.Status),
			AddedDate:     info.AddedDate,
			DoneDate:      info.DoneDate,
			LeftUntilDone: info.LeftUntilDone,
			Wanted:        info.Wanted,
			UploadRatio:   info.UploadRatio,
			DownloadLimit: info.DownloadLimit,
		}
		if withFiles {
			if info.Files == nil {
				return nil, &ProtocolError{
					Method: method, Msg: "got a torrent with missing `files`"}
			}
			if info.FileStats == nil {
				return nil, &ProtocolError{
					Method: method, Msg: "got a torrent with missing `fileStats`"}
			}
			if len(*info.Files) != len(*info.FileStats) {
				return nil, &ProtocolError{
					Method: method, Msg: "torrent's `files` and `fileStats` don't match"}
			}
			for i, file := range *info.Files {
				torrent.Files = append(torrent.Files, core.TorrentFile{
					Name:     file.Name,
					Selected: (*info.FileStats)[i].Wanted,
				})
			}
		}
		torrents = append(torrents, torrent)
	}
	return torrents, nil
}

func (c *HTTPClient) call(method string, args, result interface{}) error {
	body, err := json.Marshal(struct {
		Method    string      `json:"method"`
		Arguments interface{} `json:"arguments"`
	}{method, args})
	if err != nil {
		return &InternalError{
			Method: method, Msg: fmt.Sprintf("failed to encode the request: %s", err)}
	}
	log.Tracef("RPC call: %s", body)

	resp, err := c.send(method, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusConflict {
		sessionID := resp.Header.Get(sessionIDHeader)
		resp.Body.Close()
		if sessionID == "" {
			return &ProtocolError{Method: method, Msg: fmt.Sprintf(
				"got %s HTTP status code without %s header", resp.Status, sessionIDHeader)}
		}
		log.Debugf("Session ID is expired. Got a new session ID.")
		c.mu.Lock()
		c.sessionID = sessionID
		c.mu.Unlock()

		if resp, err = c.send(method, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &InternalError{
			Method: method, Msg: fmt.Sprintf("got %s HTTP status code", resp.Status)}
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return &ProtocolError{Method: method, Msg: fmt.Sprintf(
			"server returned a response with an invalid content type: %q",
			resp.Header.Get("Content-Type"))}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{Method: method, Err: err}
	}
	log.Tracef("RPC result: %s", bytes.TrimSpace(respBody))

	var envelope struct {
		Result    string          `json:"result"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &ProtocolError{Method: method, Msg: fmt.Sprintf(
			"got an invalid response from server: %s", err)}
	}

	if envelope.Result != "success" {
		return &RPCError{Method: method, Msg: envelope.Result}
	}
	if envelope.Arguments == nil {
		return &ProtocolError{
			Method: method, Msg: "got a successful reply without arguments"}
	}
	if err := json.Unmarshal(envelope.Arguments, result); err != nil {
		return &ProtocolError{Method: method, Msg: fmt.Sprintf(
			"got an invalid response from server: %s", err)}
	}
	return nil
}

func (c *HTTPClient) send(method string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest("POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &InternalError{
			Method: method, Msg: fmt.Sprintf("failed to create a request: %s", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.mu.RLock()
	if c.sessionID != "" {
		req.Header.Set(sessionIDHeader, c.sessionID)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Method: method, Err: err}
	}
	return resp, nil
}
