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
package core

import "fmt"

// ProcessedMarker is the magic download limit value which marks a torrent as
// consumed. The engine exposes no custom metadata surface, so the per-torrent
// downloadLimit field is reused as a persistent flag. Only Torrent.Processed
// and the RPC client's SetProcessed may reference this constant.
const ProcessedMarker = 42

// TorrentStatus enumerates engine-side torrent states.
type TorrentStatus int

// TorrentStatus wire values, as the engine reports them.
const (
	StatusPaused       TorrentStatus = 0
	StatusCheckWait    TorrentStatus = 1
	StatusChecking     TorrentStatus = 2
	StatusDownloadWait TorrentStatus = 3
	StatusDownloading  TorrentStatus = 4
	StatusSeedWait     TorrentStatus = 5
	StatusSeeding      TorrentStatus = 6
)

func (s TorrentStatus) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusCheckWait:
		return "check-wait"
	case StatusChecking:
		return "checking"
	case StatusDownloadWait:
		return "download-wait"
	case StatusDownloading:
		return "downloading"
	case StatusSeedWait:
		return "seed-wait"
	case StatusSeeding:
		return "seeding"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// TorrentFile is a single file within a torrent.
type TorrentFile struct {
	Name     string
	Selected bool
}

// Torrent is a point-in-time snapshot of a torrent's engine state. A snapshot
// is only valid for the reconciliation tick which fetched it and must never
// be cached across ticks.
type Torrent struct {
	Hash          string
	Name          string
	DownloadDir   string
	Status        TorrentStatus
	AddedDate     int64
	DoneDate      int64
	LeftUntilDone uint64
	Wanted        []bool
	UploadRatio   float64
	DownloadLimit int64

	// Files is populated by single-torrent lookups only.
	Files []TorrentFile
}

// Done returns whether the torrent has finished downloading everything the
// user asked for. A torrent with no wanted files is never done: that is the
// transient state where the user unselected all files in order to re-select
// them.
func (t *Torrent) Done() bool {
	if t.LeftUntilDone != 0 {
		return false
	}
	for _, wanted := range t.Wanted {
		if wanted {
			return true
		}
	}
	return false
}

// Processed returns whether the post-download pipeline has already handled
// this torrent.
func (t *Torrent) Processed() bool {
	return t.DownloadLimit == ProcessedMarker
}

// DoneTime returns the unix time at which the torrent finished downloading.
// Torrents added in an already complete state never receive a done date from
// the engine, so the add date stands in for it. Only meaningful while Done
// is true.
func (t *Torrent) DoneTime() int64 {
	if t.DoneDate != 0 {
		return t.DoneDate
	}
	return t.AddedDate
}
