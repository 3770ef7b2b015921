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

package transport

import (
	"context"
	"io"
	"sync"
	"time"

	serial "github.com/hootrhino/goserial"
	"github.com/pkg/errors"
	"github.com/wwhai/gomodbus-core"
)

var errPortNotOpen = errors.New("modbus: serial port not open")

// SerialConfig mirrors the teacher's go.mod dependency github.com/hootrhino/goserial,
// whose Config/Open shape follows the grid-x/serial and goburrow/serial family
// used elsewhere in the retrieval pack (Address, BaudRate, DataBits, StopBits,
// Parity, Timeout).
type SerialConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// serialEndpoint adapts a goserial port to modbus.Endpoint.
type serialEndpoint struct {
	cfg SerialConfig

	mu      sync.Mutex
	port    io.ReadWriteCloser
	onOpen  func()
	onClose func()
	onData  func([]byte)
	onError func(error)

	closeOnce sync.Once
}

// NewSerialEndpoint returns a modbus.Endpoint backed by a local serial port,
// opened via github.com/hootrhino/goserial on Open.
func NewSerialEndpoint(cfg SerialConfig) modbus.Endpoint {
	return &serialEndpoint{cfg: cfg}
}

func (s *serialEndpoint) OnOpen(f func())       { s.onOpen = f }
func (s *serialEndpoint) OnClose(f func())      { s.onClose = f }
func (s *serialEndpoint) OnData(f func([]byte)) { s.onData = f }
func (s *serialEndpoint) OnError(f func(error)) { s.onError = f }

func (s *serialEndpoint) Open(ctx context.Context) error {
	port, err := serial.Open(&serial.Config{
		Address:  s.cfg.Address,
		BaudRate: s.cfg.BaudRate,
		DataBits: s.cfg.DataBits,
		StopBits: s.cfg.StopBits,
		Parity:   s.cfg.Parity,
		Timeout:  s.cfg.Timeout,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()

	if s.onOpen != nil {
		s.onOpen()
	}
	go s.readLoop(port)
	return nil
}

func (s *serialEndpoint) readLoop(port io.ReadWriteCloser) {
	buf := make([]byte, 512)
	for {
		n, err := port.Read(buf)
		if n > 0 && s.onData != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.onData(chunk)
		}
		if err != nil {
			s.closeOnce.Do(func() {
				if s.onClose != nil {
					s.onClose()
				}
			})
			return
		}
	}
}

func (s *serialEndpoint) Write(b []byte) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return errPortNotOpen
	}
	_, err := port.Write(b)
	if err != nil && s.onError != nil {
		s.onError(err)
	}
	return err
}

func (s *serialEndpoint) Close() error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	err := port.Close()
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
	return err
}
