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

import "encoding/binary"

// HandlerSet groups the per-function-code application callbacks a slave-side
// dispatcher invokes. A nil callback yields IllegalFunctionCode. Grounded on the
// teacher's request-parsing logic in enhancement-tcp_handler.go /
// enhancement-rtu_handler.go, restructured per the Design Notes "dependency
// struct" guidance (a plain struct of callbacks rather than an interface to
// subclass).
type HandlerSet struct {
	ReadCoils              func(address, quantity uint16) ([]bool, ExceptionCode)
	ReadDiscreteInputs     func(address, quantity uint16) ([]bool, ExceptionCode)
	ReadHoldingRegisters   func(address, quantity uint16) ([]uint16, ExceptionCode)
	ReadInputRegisters     func(address, quantity uint16) ([]uint16, ExceptionCode)
	WriteSingleCoil        func(address uint16, value bool) ExceptionCode
	WriteSingleRegister    func(address, value uint16) ExceptionCode
	WriteMultipleCoils     func(address uint16, values []bool) ExceptionCode
	WriteMultipleRegisters func(address uint16, values []uint16) ExceptionCode
}

// Dispatch parses reqPDU, invokes the matching HandlerSet callback, and returns
// the response PDU (success or exception). Used by the in-process test harness
// to exercise the codec in reverse (spec §4.2); never called by the master.
func Dispatch(h HandlerSet, reqPDU []byte) []byte {
	if len(reqPDU) == 0 {
		return BuildException(0, ExcIllegalFunctionCode)
	}
	fc := FunctionCode(reqPDU[0])
	body := reqPDU[1:]

	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs:
		if len(body) != 4 {
			return BuildException(fc, ExcIllegalDataValue)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		quantity := binary.BigEndian.Uint16(body[2:4])
		handler := h.ReadCoils
		if fc == FuncReadDiscreteInputs {
			handler = h.ReadDiscreteInputs
		}
		if handler == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		values, exc := handler(address, quantity)
		if exc != 0 {
			return BuildException(fc, exc)
		}
		packed := packBits(values)
		resp := make([]byte, 2+len(packed))
		resp[0] = byte(fc)
		resp[1] = byte(len(packed))
		copy(resp[2:], packed)
		return resp

	case FuncReadHoldingRegisters, FuncReadInputRegisters:
		if len(body) != 4 {
			return BuildException(fc, ExcIllegalDataValue)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		quantity := binary.BigEndian.Uint16(body[2:4])
		handler := h.ReadHoldingRegisters
		if fc == FuncReadInputRegisters {
			handler = h.ReadInputRegisters
		}
		if handler == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		values, exc := handler(address, quantity)
		if exc != 0 {
			return BuildException(fc, exc)
		}
		resp := make([]byte, 2+2*len(values))
		resp[0] = byte(fc)
		resp[1] = byte(2 * len(values))
		for i, v := range values {
			binary.BigEndian.PutUint16(resp[2+2*i:4+2*i], v)
		}
		return resp

	case FuncWriteSingleCoil:
		if len(body) != 4 || h.WriteSingleCoil == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		rawValue := binary.BigEndian.Uint16(body[2:4])
		if exc := h.WriteSingleCoil(address, rawValue == 0xFF00); exc != 0 {
			return BuildException(fc, exc)
		}
		return append([]byte{byte(fc)}, body...)

	case FuncWriteSingleRegister:
		if len(body) != 4 || h.WriteSingleRegister == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		value := binary.BigEndian.Uint16(body[2:4])
		if exc := h.WriteSingleRegister(address, value); exc != 0 {
			return BuildException(fc, exc)
		}
		return append([]byte{byte(fc)}, body...)

	case FuncWriteMultipleCoils:
		if len(body) < 5 {
			return BuildException(fc, ExcIllegalDataValue)
		}
		if h.WriteMultipleCoils == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		quantity := binary.BigEndian.Uint16(body[2:4])
		byteCount := int(body[4])
		if len(body) != 5+byteCount {
			return BuildException(fc, ExcIllegalDataValue)
		}
		values := unpackBits(body[5:], int(quantity))
		if exc := h.WriteMultipleCoils(address, values); exc != 0 {
			return BuildException(fc, exc)
		}
		return append([]byte{byte(fc)}, body[:4]...)

	case FuncWriteMultipleRegisters:
		if len(body) < 5 {
			return BuildException(fc, ExcIllegalDataValue)
		}
		if h.WriteMultipleRegisters == nil {
			return BuildException(fc, ExcIllegalFunctionCode)
		}
		address := binary.BigEndian.Uint16(body[0:2])
		quantity := binary.BigEndian.Uint16(body[2:4])
		byteCount := int(body[4])
		if len(body) != 5+byteCount || byteCount != 2*int(quantity) {
			return BuildException(fc, ExcIllegalDataValue)
		}
		values := make([]uint16, quantity)
		for i := range values {
			values[i] = binary.BigEndian.Uint16(body[5+2*i : 7+2*i])
		}
		if exc := h.WriteMultipleRegisters(address, values); exc != 0 {
			return BuildException(fc, exc)
		}
		return append([]byte{byte(fc)}, body[:4]...)

	default:
		return BuildException(fc, ExcIllegalFunctionCode)
	}
}
