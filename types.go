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

import "fmt"

// FunctionCode selects the operation a PDU carries.
type FunctionCode byte

const (
	FuncReadCoils              FunctionCode = 1
	FuncReadDiscreteInputs     FunctionCode = 2
	FuncReadHoldingRegisters   FunctionCode = 3
	FuncReadInputRegisters     FunctionCode = 4
	FuncWriteSingleCoil        FunctionCode = 5
	FuncWriteSingleRegister    FunctionCode = 6
	FuncWriteMultipleCoils     FunctionCode = 15
	FuncWriteMultipleRegisters FunctionCode = 16
	FuncMei                    FunctionCode = 43
)

func (fc FunctionCode) String() string {
	switch fc {
	case FuncReadCoils:
		return "ReadCoils"
	case FuncReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case FuncReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case FuncReadInputRegisters:
		return "ReadInputRegisters"
	case FuncWriteSingleCoil:
		return "WriteSingleCoil"
	case FuncWriteSingleRegister:
		return "WriteSingleRegister"
	case FuncWriteMultipleCoils:
		return "WriteMultipleCoils"
	case FuncWriteMultipleRegisters:
		return "WriteMultipleRegisters"
	case FuncMei:
		return "MEI"
	default:
		return fmt.Sprintf("FunctionCode(0x%02X)", byte(fc))
	}
}

// ExceptionCode is the single-byte payload of a Modbus exception response.
type ExceptionCode byte

const (
	ExcIllegalFunctionCode ExceptionCode = 1
	ExcIllegalDataAddress  ExceptionCode = 2
	ExcIllegalDataValue    ExceptionCode = 3
	ExcServerFailure       ExceptionCode = 4
	ExcAcknowledge         ExceptionCode = 5
	ExcServerBusy          ExceptionCode = 6
)

func (ec ExceptionCode) String() string {
	switch ec {
	case ExcIllegalFunctionCode:
		return "illegal function code"
	case ExcIllegalDataAddress:
		return "illegal data address"
	case ExcIllegalDataValue:
		return "illegal data value"
	case ExcServerFailure:
		return "server failure"
	case ExcAcknowledge:
		return "acknowledge"
	case ExcServerBusy:
		return "server busy"
	default:
		return fmt.Sprintf("exception 0x%02X", byte(ec))
	}
}

// maxAddressSpan is the size of the 16-bit address space addresses and quantities
// must never overflow (spec: starting address + quantity must not exceed 0x10000).
const maxAddressSpan = 0x10000

func validateAddressQuantity(address, quantity uint16, minQty, maxQty int) error {
	if int(quantity) < minQty || int(quantity) > maxQty {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be between %d and %d, got %d", minQty, maxQty, quantity)}
	}
	if int(address)+int(quantity) > maxAddressSpan {
		return &ValidationError{Field: "address", Reason: fmt.Sprintf("starting address 0x%04X + quantity %d overflows the 16-bit address space", address, quantity)}
	}
	return nil
}
