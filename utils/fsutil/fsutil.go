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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	partFilePollInterval = 100 * time.Millisecond
	partFilePollRetries  = 50
)

// CheckDirectory returns an error unless path exists and is a directory.
func CheckDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%q does not exist", path)
		}
		return fmt.Errorf("%q: %s", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", path)
	}
	return nil
}

// ValidateTorrentFileName checks that a file name reported by the engine is a
// plain relative path and safe to join under a local directory. Only ordinary
// components are allowed: absolute paths, volume prefixes, "." and ".."
// components and empty names are rejected. Returns the cleaned path and its
// first component (the torrent's top level root).
func ValidateTorrentFileName(name string) (path string, root string, err error) {
	invalid := func() (string, string, error) {
		return "", "", fmt.Errorf("invalid torrent file name: %q", name)
	}
	if name == "" || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return invalid()
	}
	var components []string
	for _, c := range strings.Split(name, "/") {
		if c == "" {
			// Redundant separators collapse.
			continue
		}
		if c == "." || c == ".." {
			return invalid()
		}
		components = append(components, c)
	}
	if len(components) == 0 {
		return invalid()
	}
	return filepath.Join(components...), components[0], nil
}

// CreateAllDirsFromBase creates the directories represented by relPath inside
// the base directory. base itself is never created -- it must already exist.
// Optimistic scenario: most of the time the directories already exist, so the
// deepest path is probed first and missing parents are created on demand.
func CreateAllDirsFromBase(base, relPath string) error {
	if filepath.IsAbs(relPath) {
		return fmt.Errorf("expected a relative path, got %q", relPath)
	}

	var deferred []string
	path := relPath
	checked := false

	for path != "" && path != "." {
		fullPath := filepath.Join(base, path)

		exists, err := existingDirectory(fullPath)
		if err != nil {
			return fmt.Errorf("create directory %q: %s", fullPath, err)
		}
		if exists {
			checked = true
			break
		}

		err = os.Mkdir(fullPath, 0755)
		if err == nil {
			checked = true
			break
		}
		switch {
		case os.IsNotExist(err):
			// The parent doesn't exist. Create it first.
			deferred = append(deferred, path)
			path = filepath.Dir(path)
		case os.IsExist(err):
			// Lost a race. Re-probe the same path.
		default:
			return fmt.Errorf("create directory %q: %s", fullPath, err)
		}
	}

	if !checked {
		if err := CheckDirectory(base); err != nil {
			return err
		}
	}

	for i := len(deferred) - 1; i >= 0; i-- {
		fullPath := filepath.Join(base, deferred[i])
		if err := os.Mkdir(fullPath, 0755); err != nil {
			return fmt.Errorf("create directory %q: %s", fullPath, err)
		}
	}
	return nil
}

// CopyFile copies a downloaded file to dst, which must not exist yet. buf is
// the streaming buffer; a nil buf falls back to the io.Copy default.
func CopyFile(src, dst string, buf []byte) error {
	srcFile, err := OpenDownloadedFile(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create %q: %s", dst, err)
	}

	if _, err := io.CopyBuffer(dstFile, srcFile, buf); err != nil {
		dstFile.Close()
		return fmt.Errorf("copy %q to %q: %s", src, dst, err)
	}
	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("close %q: %s", dst, err)
	}
	return nil
}

// OpenDownloadedFile opens a file the engine considers fully downloaded.
// Some engine versions mark torrents as downloaded before renaming their
// *.part files, so if the file is missing but its *.part sibling exists, the
// rename is awaited for a bounded time before giving up.
func OpenDownloadedFile(path string) (*os.File, error) {
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(partFilePollInterval), partFilePollRetries)
	return openDownloadedFile(path, policy)
}

func openDownloadedFile(path string, policy backoff.BackOff) (*os.File, error) {
	var f *os.File
	partPath := path + ".part"

	op := func() error {
		var err error
		f, err = os.Open(path)
		if err == nil {
			return nil
		}
		if !os.IsNotExist(err) {
			return backoff.Permanent(fmt.Errorf("open %q: %s", path, err))
		}
		if _, perr := os.Stat(partPath); perr != nil {
			if os.IsNotExist(perr) {
				return backoff.Permanent(fmt.Errorf("open %q: %s", path, err))
			}
			return backoff.Permanent(fmt.Errorf("%q: %s", partPath, perr))
		}
		return fmt.Errorf("%q has not been downloaded (%q still exists)", path, partPath)
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return f, nil
}

// ListAbandoned returns the names of all non-hidden entries of dir, sorted.
func ListAbandoned(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func existingDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("it already exists and is not a directory")
	}
	return true, nil
}
