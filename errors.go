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

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError reports a request argument outside the ranges in spec §3.
// It is always returned synchronously from the call site, never through a result channel.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("modbus: validation error: %s: %s", e.Field, e.Reason)
}

// ModbusException is a well-formed slave response indicating refusal, not a transport failure.
type ModbusException struct {
	FunctionCode FunctionCode
	Code         ExceptionCode
}

func (e *ModbusException) Error() string {
	return fmt.Sprintf("modbus: exception from %s: %s", e.FunctionCode, e.Code)
}

// TimeoutError reports that a request exceeded its per-attempt timeout and the
// retry predicate declined to retry further.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("modbus: timeout after %d attempt(s)", e.Attempts)
}

// MasterError wraps a transport-layer failure (connection refused, peer reset,
// write failure, CRC mismatch, inactivity timeout) with its original cause.
type MasterError struct {
	cause error
}

// NewMasterError wraps cause, preserving it for errors.Cause / errors.Unwrap.
func NewMasterError(cause error) *MasterError {
	return &MasterError{cause: errors.WithStack(cause)}
}

func (e *MasterError) Error() string {
	return fmt.Sprintf("modbus: master error: %v", e.cause)
}

func (e *MasterError) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped cause, so errors.Cause walks through a MasterError
// to the original error.
func (e *MasterError) Cause() error {
	return e.cause
}

// CancelError reports that a request was canceled before it completed.
type CancelError struct{}

func (e *CancelError) Error() string {
	return "modbus: request canceled"
}

// ErrQueueFull is returned by a request call when MasterConfig.QueueDepth is
// exceeded (spec §5, optional backpressure cap).
var ErrQueueFull = errors.New("modbus: request queue full")

// ErrCRCMismatch is the cause wrapped by MasterError when an inbound RTU frame
// fails CRC verification (spec §9 open question 2).
var ErrCRCMismatch = errors.New("modbus: RTU CRC mismatch")

// ErrNotOpen is the cause wrapped by MasterError when a request is issued while
// the connection is not Open.
var ErrNotOpen = errors.New("modbus: connection is not open")
