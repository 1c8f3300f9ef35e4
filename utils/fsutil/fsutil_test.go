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
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectory(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(CheckDirectory(dir))

	err := CheckDirectory(filepath.Join(dir, "nope"))
	require.Error(err)
	require.Contains(err.Error(), "does not exist")

	file := filepath.Join(dir, "file")
	require.NoError(os.WriteFile(file, []byte("x"), 0644))
	err = CheckDirectory(file)
	require.Error(err)
	require.Contains(err.Error(), "is not a directory")
}

func TestValidateTorrentFileName(t *testing.T) {
	tests := []struct {
		name string
		path string
		root string
		ok   bool
	}{
		{"a/x", "a/x", "a", true},
		{"x", "x", "x", true},
		{"a/b/c", "a/b/c", "a", true},
		{"a//b", "a/b", "a", true},
		{"", "", "", false},
		{"/abs/path", "", "", false},
		{"a/../x", "", "", false},
		{"./x", "", "", false},
		{"..", "", "", false},
		{"//", "", "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			path, root, err := ValidateTorrentFileName(test.name)
			if !test.ok {
				require.Error(err)
				return
			}
			require.NoError(err)
			require.Equal(test.path, path)
			require.Equal(test.root, root)

			// The root must lead the returned path.
			require.True(strings.HasPrefix(path, root))
		})
	}
}

func TestCreateAllDirsFromBase(t *testing.T) {
	require := require.New(t)

	base := t.TempDir()

	require.NoError(CreateAllDirsFromBase(base, "a/b/c"))
	require.NoError(CheckDirectory(filepath.Join(base, "a/b/c")))

	// Already existing directories are fine.
	require.NoError(CreateAllDirsFromBase(base, "a/b/c"))

	// Partially existing trees are completed.
	require.NoError(CreateAllDirsFromBase(base, "a/b/d/e"))
	require.NoError(CheckDirectory(filepath.Join(base, "a/b/d/e")))

	// An empty path only checks the base.
	require.NoError(CreateAllDirsFromBase(base, ""))
	require.Error(CreateAllDirsFromBase(filepath.Join(base, "missing-base"), ""))

	require.Error(CreateAllDirsFromBase(base, "/abs"))
}

func TestCreateAllDirsFromBaseFileCollision(t *testing.T) {
	require := require.New(t)

	base := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(base, "a"), []byte("x"), 0644))

	err := CreateAllDirsFromBase(base, "a/b")
	require.Error(err)
}

func TestCopyFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(os.WriteFile(src, []byte("some file content"), 0644))

	require.NoError(CopyFile(src, dst, make([]byte, 4)))

	b, err := os.ReadFile(dst)
	require.NoError(err)
	require.Equal("some file content", string(b))

	// Destination collisions are errors.
	err = CopyFile(src, dst, nil)
	require.Error(err)
	require.Contains(err.Error(), "create")
}

func TestOpenDownloadedFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	require.NoError(os.WriteFile(path, []byte("x"), 0644))

	f, err := OpenDownloadedFile(path)
	require.NoError(err)
	require.NoError(f.Close())
}

func TestOpenDownloadedFileMissing(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "missing")

	_, err := openDownloadedFile(path, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(time.Millisecond), 3))
	require.Error(err)
	require.Contains(err.Error(), "open")
}

func TestOpenDownloadedFilePartRenamed(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	partPath := path + ".part"
	require.NoError(os.WriteFile(partPath, []byte("x"), 0644))

	go func() {
		time.Sleep(30 * time.Millisecond)
		os.Rename(partPath, path)
	}()

	f, err := openDownloadedFile(path, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(10*time.Millisecond), 50))
	require.NoError(err)
	require.NoError(f.Close())
}

func TestOpenDownloadedFilePartStuck(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	require.NoError(os.WriteFile(path+".part", []byte("x"), 0644))

	_, err := openDownloadedFile(path, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(time.Millisecond), 3))
	require.Error(err)
	require.Contains(err.Error(), "has not been downloaded")
}

func TestListAbandoned(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "movie"), []byte("x"), 0644))
	require.NoError(os.Mkdir(filepath.Join(dir, "series"), 0755))
	require.NoError(os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644))

	names, err := ListAbandoned(dir)
	require.NoError(err)
	require.Equal([]string{"movie", "series"}, names)

	empty := t.TempDir()
	names, err = ListAbandoned(empty)
	require.NoError(err)
	require.Empty(names)
}
