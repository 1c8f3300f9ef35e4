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
	"errors"
	"fmt"
)

// ConnectionError occurs when the HTTP round-trip to the engine fails.
type ConnectionError struct {
	Method string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(
		"%s: failed to connect to transmission daemon: %s", e.Method, rootCause(e.Err))
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// InternalError occurs when the engine replies with an unexpected HTTP
// status.
type InternalError struct {
	Method string
	Msg    string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: error in communication with transmission daemon: %s", e.Method, e.Msg)
}

// ProtocolError occurs when the engine's reply violates the RPC contract.
type ProtocolError struct {
	Method string
	Msg    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: error in communication with transmission daemon: %s", e.Method, e.Msg)
}

// RPCError occurs when the engine itself rejects a request. NotFound marks
// the single-torrent lookup miss.
type RPCError struct {
	Method   string
	Msg      string
	NotFound bool
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: transmission daemon returned an error: %s", e.Method, e.Msg)
}

// IsConnectionError returns true for transport failures.
func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

// IsProtocolError returns true for RPC contract violations.
func IsProtocolError(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// IsRPCError returns true for errors returned by the engine itself.
func IsRPCError(err error) bool {
	var e *RPCError
	return errors.As(err, &e)
}

// IsTorrentNotFound returns true when a single-torrent lookup found nothing.
func IsTorrentNotFound(err error) bool {
	var e *RPCError
	return errors.As(err, &e) && e.NotFound
}

// rootCause digs out the deepest cause of nested transport errors, which
// read much better in logs than the full url.Error chain.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
