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
package consumer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/transmissionctl/transmissionctl/core"
	"github.com/transmissionctl/transmissionctl/lib/email"
	"github.com/transmissionctl/transmissionctl/lib/transmission"
	mocktransmission "github.com/transmissionctl/transmissionctl/mocks/lib/transmission"
)

type fixture struct {
	consumer *Consumer
	client   *mocktransmission.MockClient
	clk      *clock.Mock
	notifier *fakeSender

	downloadDir string
	copyTo      string
	moveTo      string
}

type fakeSender struct {
	mu   sync.Mutex
	sent [][2]string
}

func (s *fakeSender) Send(subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, [2]string{subject, body})
	return nil
}

func (s *fakeSender) all() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.sent...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &fixture{
		client:      mocktransmission.NewMockClient(ctrl),
		clk:         clock.NewMock(),
		notifier:    &fakeSender{},
		downloadDir: t.TempDir(),
		copyTo:      t.TempDir(),
		moveTo:      t.TempDir(),
	}
	f.clk.Set(time.Now())

	consumer, err := New(
		Config{CopyTo: f.copyTo, MoveTo: f.moveTo},
		f.client,
		f.notifier,
		email.DefaultDownloadedTemplate(),
		f.clk,
		tally.NoopScope)
	require.NoError(t, err)
	t.Cleanup(consumer.Stop)
	f.consumer = consumer

	return f
}

func (f *fixture) torrent(hash string, files ...core.TorrentFile) *core.Torrent {
	return &core.Torrent{
		Hash:          hash,
		Name:          "torrent-" + hash,
		DownloadDir:   f.downloadDir,
		Status:        core.StatusSeeding,
		AddedDate:     100,
		DoneDate:      200,
		LeftUntilDone: 0,
		Wanted:        []bool{true},
		Files:         files,
	}
}

func (f *fixture) writeDownloaded(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.downloadDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func waitProcessed(t *testing.T, f *fixture) {
	t.Helper()
	for i := 0; i < 500; i++ {
		if len(f.consumer.InProcess()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("consumer never finished processing")
}

func TestConsumeHappyPath(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.writeDownloaded(t, "a/x", "payload")
	f.writeDownloaded(t, "a/.hidden", "secret")

	torrent := f.torrent("abc",
		core.TorrentFile{Name: "a/x", Selected: true},
		core.TorrentFile{Name: "a/.hidden", Selected: true})

	f.client.EXPECT().GetTorrent("abc").Return(torrent, nil)
	f.client.EXPECT().SetProcessed("abc").Return(nil)

	f.consumer.Consume("abc")
	waitProcessed(t, f)

	moved, err := os.ReadFile(filepath.Join(f.moveTo, "a/x"))
	require.NoError(err)
	require.Equal("payload", string(moved))

	// The staging copy was renamed away wholesale.
	_, err = os.Stat(filepath.Join(f.copyTo, "a"))
	require.True(os.IsNotExist(err))

	// Hidden files never travel.
	_, err = os.Stat(filepath.Join(f.moveTo, "a/.hidden"))
	require.True(os.IsNotExist(err))

	sent := f.notifier.all()
	require.Len(sent, 1)
	require.Contains(sent[0][0], torrent.Name)
}

func TestConsumeUnselectedFilesSkipped(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.writeDownloaded(t, "a/x", "wanted")
	f.writeDownloaded(t, "a/y", "unwanted")

	torrent := f.torrent("abc",
		core.TorrentFile{Name: "a/x", Selected: true},
		core.TorrentFile{Name: "a/y", Selected: false})

	f.client.EXPECT().GetTorrent("abc").Return(torrent, nil)
	f.client.EXPECT().SetProcessed("abc").Return(nil)

	f.consumer.Consume("abc")
	waitProcessed(t, f)

	_, err := os.Stat(filepath.Join(f.moveTo, "a/x"))
	require.NoError(err)
	_, err = os.Stat(filepath.Join(f.moveTo, "a/y"))
	require.True(os.IsNotExist(err))
}

func TestConsumeMoveCollisions(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// Occupy the plain name and the first eight DUP names, leaving only
	// DUP_9 free.
	require.NoError(os.Mkdir(filepath.Join(f.moveTo, "a"), 0755))
	for n := 1; n <= 8; n++ {
		require.NoError(os.Mkdir(
			filepath.Join(f.moveTo, fmt.Sprintf("DUP_%d.a", n)), 0755))
	}

	run := func(hash string) {
		f.writeDownloaded(t, "a/x", "payload "+hash)
		torrent := f.torrent(hash, core.TorrentFile{Name: "a/x", Selected: true})
		f.client.EXPECT().GetTorrent(hash).Return(torrent, nil)
		f.client.EXPECT().SetProcessed(hash).Return(nil)
		f.consumer.Consume(hash)
		waitProcessed(t, f)
		require.NoError(os.RemoveAll(filepath.Join(f.downloadDir, "a")))
	}

	run("first")
	_, err := os.Stat(filepath.Join(f.moveTo, "DUP_9.a", "x"))
	require.NoError(err)

	// Every candidate name is now taken; the next consume fails for good.
	f.writeDownloaded(t, "a/x", "payload last")
	torrent := f.torrent("last", core.TorrentFile{Name: "a/x", Selected: true})
	f.client.EXPECT().GetTorrent("last").Return(torrent, nil)

	f.consumer.Consume("last")
	waitProcessed(t, f)

	// The failed "last" consume must not notify; only the earlier success
	// for "first" did.
	require.True(f.consumer.failed.Has("last"))
	require.Len(f.notifier.all(), 1)
}

func TestConsumeCancelledTorrentNotFound(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.client.EXPECT().GetTorrent("gone").Return(
		nil, &transmission.RPCError{Method: "torrent-get", NotFound: true})

	f.consumer.Consume("gone")
	waitProcessed(t, f)

	require.False(f.consumer.failed.Has("gone"))
}

func TestConsumeCancelledRedownloading(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	torrent := f.torrent("abc")
	torrent.LeftUntilDone = 1024

	f.client.EXPECT().GetTorrent("abc").Return(torrent, nil)

	f.consumer.Consume("abc")
	waitProcessed(t, f)

	require.False(f.consumer.failed.Has("abc"))
}

func TestConsumeTemporaryErrorRetriesBatch(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.writeDownloaded(t, "a/x", "payload")
	torrent := f.torrent("abc", core.TorrentFile{Name: "a/x", Selected: true})

	gomock.InOrder(
		f.client.EXPECT().GetTorrent("abc").Return(
			nil, &transmission.ConnectionError{
				Method: "torrent-get", Err: errors.New("connection refused")}),
		f.client.EXPECT().GetTorrent("abc").Return(torrent, nil),
	)
	f.client.EXPECT().SetProcessed("abc").Return(nil)

	f.consumer.Consume("abc")

	// The hash stays scheduled through the retry window: the wake token
	// buffered by Consume must not cut the delay short.
	time.Sleep(50 * time.Millisecond)
	require.True(f.consumer.InProcess().Has("abc"))
	require.False(f.consumer.failed.Has("abc"))

	for i := 0; i < 500; i++ {
		if len(f.consumer.InProcess()) == 0 {
			break
		}
		f.clk.Add(time.Second)
		time.Sleep(2 * time.Millisecond)
	}
	require.Empty(f.consumer.InProcess())
}

func TestConsumePersistentErrorSuppressed(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// The download is missing on disk, so the copy fails.
	torrent := f.torrent("abc", core.TorrentFile{Name: "a/x", Selected: true})
	f.client.EXPECT().GetTorrent("abc").Return(torrent, nil)

	f.consumer.Consume("abc")
	waitProcessed(t, f)

	require.True(f.consumer.failed.Has("abc"))

	// Re-consuming a failed hash must not trigger another attempt.
	f.consumer.Consume("abc")
	time.Sleep(50 * time.Millisecond)
	require.True(f.consumer.InProcess().Has("abc"))
	require.True(f.consumer.failed.Has("abc"))
}

func TestConsumeAfterStopDropped(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.consumer.Stop()

	// No worker is left, so the hash must be dropped rather than parked
	// forever.
	f.consumer.Consume("late")
	require.Empty(f.consumer.InProcess())
}

func TestConsumeInvalidFileName(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	torrent := f.torrent("abc", core.TorrentFile{Name: "../escape", Selected: true})
	f.client.EXPECT().GetTorrent("abc").Return(torrent, nil)

	f.consumer.Consume("abc")
	waitProcessed(t, f)

	require.True(f.consumer.failed.Has("abc"))
}

func TestInProcessSnapshot(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocktransmission.NewMockClient(ctrl)

	// Block the worker so the scheduled hash stays visible.
	blocked := make(chan struct{})
	client.EXPECT().GetTorrent(gomock.Any()).DoAndReturn(
		func(string) (*core.Torrent, error) {
			<-blocked
			return nil, &transmission.RPCError{Method: "torrent-get", NotFound: true}
		}).AnyTimes()

	consumer, err := New(
		Config{}, client, nil, email.Template{}, clock.NewMock(), tally.NoopScope)
	require.NoError(err)

	consumer.Consume("abc")
	require.True(consumer.InProcess().Has("abc"))

	// The snapshot is a copy: mutating it doesn't affect the consumer.
	snapshot := consumer.InProcess()
	snapshot.Remove("abc")
	require.True(consumer.InProcess().Has("abc"))

	close(blocked)
	consumer.Stop()
}

func TestAbandonedFilesCheck(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocktransmission.NewMockClient(ctrl)

	copyTo := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(copyTo, "leftover"), nil, 0644))
	require.NoError(os.WriteFile(filepath.Join(copyTo, ".hidden"), nil, 0644))

	// The check only reports; construction must still succeed.
	consumer, err := New(
		Config{CopyTo: copyTo, MoveTo: t.TempDir()},
		client, nil, email.Template{}, clock.NewMock(), tally.NoopScope)
	require.NoError(err)
	consumer.Stop()
}
