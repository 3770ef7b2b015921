// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package modbus

import "context"

// Endpoint is the abstract byte-duplex transport the master depends on (spec
// §4.5). Concrete implementations (TCP sockets, serial ports) live outside this
// package's scope; see the transport package for the two adapters this module
// ships. Implementations MUST deliver OnData bytes in order and fire OnClose at
// most once per session.
type Endpoint interface {
	// Open establishes the connection and blocks until it succeeds or ctx is done.
	Open(ctx context.Context) error
	// Close performs a graceful shutdown. Safe to call more than once.
	Close() error
	// Write is a best-effort send; errors may also surface later via OnError.
	Write(b []byte) error

	// OnOpen, OnClose, OnData, and OnError register event callbacks. Callbacks
	// must be registered before Open is called.
	OnOpen(func())
	OnClose(func())
	OnData(func([]byte))
	OnError(func(error))
}
