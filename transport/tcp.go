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

// Package transport provides concrete modbus.Endpoint implementations. These
// are thin shims (spec §4.5): the core protocol lives in the root modbus
// package, and this package only turns a net.Conn or serial port into the
// callback-based byte-duplex interface the master expects.
package transport

import (
	"context"
	"net"
	"sync"

	"github.com/wwhai/gomodbus-core"
)

// tcpEndpoint adapts a net.Conn to modbus.Endpoint, grounded on the teacher's
// tcp_transporter.go (net.Conn ownership, single-reader-goroutine shape).
type tcpEndpoint struct {
	addr string

	mu      sync.Mutex
	conn    net.Conn
	onOpen  func()
	onClose func()
	onData  func([]byte)
	onError func(error)

	closeOnce sync.Once
}

// NewTCPEndpoint returns a modbus.Endpoint that dials addr (host:port) on Open.
func NewTCPEndpoint(addr string) modbus.Endpoint {
	return &tcpEndpoint{addr: addr}
}

func (t *tcpEndpoint) OnOpen(f func())       { t.onOpen = f }
func (t *tcpEndpoint) OnClose(f func())      { t.onClose = f }
func (t *tcpEndpoint) OnData(f func([]byte)) { t.onData = f }
func (t *tcpEndpoint) OnError(f func(error)) { t.onError = f }

func (t *tcpEndpoint) Open(ctx context.Context) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	if t.onOpen != nil {
		t.onOpen()
	}
	go t.readLoop(conn)
	return nil
}

func (t *tcpEndpoint) readLoop(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && t.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.onData(chunk)
		}
		if err != nil {
			t.closeOnce.Do(func() {
				if t.onClose != nil {
					t.onClose()
				}
			})
			return
		}
	}
}

func (t *tcpEndpoint) Write(b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(b)
	if err != nil && t.onError != nil {
		t.onError(err)
	}
	return err
}

func (t *tcpEndpoint) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	t.closeOnce.Do(func() {
		if t.onClose != nil {
			t.onClose()
		}
	})
	return err
}
