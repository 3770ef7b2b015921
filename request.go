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

import "time"

// requestResult is what the pipeline delivers back to a waiting caller.
type requestResult struct {
	resp *PDUResponse
	exc  *ModbusException
	err  error
}

// inFlightRequest is the §3 "in-flight request record": created on enqueue,
// destroyed when a matching response arrives, the retry budget is exhausted, or
// the connection terminates.
type inFlightRequest struct {
	id            uint64
	pdu           []byte
	fc            FunctionCode
	retry         int
	timeout       time.Duration
	retryWhen     RetryWhen
	log           logSink // this call's log sink, may differ from the Master's (WithRequestLogger)
	resultCh      chan requestResult
	frameCh       chan frameDelivery // fed by the receiver once a matching frame arrives
	canceled      bool
	transactionID uint16 // TCP only
}

// frameDelivery carries either a matched response PDU or a receive-side error
// (e.g. RTU CRC mismatch) from the receiver goroutine to the waiting consumer.
type frameDelivery struct {
	pdu []byte
	err error
}
