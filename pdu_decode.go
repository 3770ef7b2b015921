package modbus

import "encoding/binary"

// ResponseKind tags which variant a decoded PDUResponse carries.
type ResponseKind int

const (
	KindReadBits ResponseKind = iota
	KindReadRegisters
	KindWriteBit
	KindWriteRegister
	KindWriteMultiple
)

// ReadBits is the decoded data for ReadCoils / ReadDiscreteInputs responses.
type ReadBits struct {
	Bytes  uint8
	Values []bool
}

// ReadRegisters is the decoded data for ReadHoldingRegisters / ReadInputRegisters responses.
type ReadRegisters struct {
	Bytes  uint8
	Values []uint16
}

// WriteBit is the decoded data for a WriteSingleCoil response.
type WriteBit struct {
	Address uint16
	Value   bool
}

// WriteRegister is the decoded data for a WriteSingleRegister response.
type WriteRegister struct {
	Address uint16
	Value   uint16
}

// WriteMultiple is the decoded data for WriteMultipleCoils / WriteMultipleRegisters responses.
type WriteMultiple struct {
	Address  uint16
	Quantity uint16
}

// PDUResponse is a decoded, well-formed (non-exception) response.
type PDUResponse struct {
	FunctionCode FunctionCode
	Kind         ResponseKind
	Bits         *ReadBits
	Registers    *ReadRegisters
	Bit          *WriteBit
	Register     *WriteRegister
	Multi        *WriteMultiple
	Raw          []byte
}

// decodeResponse inspects a raw PDU (function code byte plus body) and returns
// either a *PDUResponse or a *ModbusException (never both, never a Go error for
// a well-formed buffer — spec §4.1 "Decoding never fails on a well-formed buffer").
// A read-bits response always yields 8·Bytes values, padded with the trailing
// zero bits the slave sent to fill out the last byte (spec §8 scenario 1).
func decodeResponse(raw []byte) (*PDUResponse, *ModbusException) {
	if len(raw) == 0 {
		return nil, &ModbusException{Code: ExcIllegalDataValue}
	}
	first := raw[0]
	if first >= 0x80 {
		code := ExcIllegalDataValue
		if len(raw) >= 2 {
			code = ExceptionCode(raw[1])
		}
		return nil, &ModbusException{FunctionCode: FunctionCode(first - 0x80), Code: code}
	}

	fc := FunctionCode(first)
	body := raw[1:]

	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs:
		if len(body) < 1 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		n := int(body[0])
		if len(body) < 1+n {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		values := unpackBits(body[1:1+n], n*8)
		return &PDUResponse{
			FunctionCode: fc,
			Kind:         KindReadBits,
			Bits:         &ReadBits{Bytes: uint8(n), Values: values},
			Raw:          raw,
		}, nil

	case FuncReadHoldingRegisters, FuncReadInputRegisters:
		if len(body) < 1 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		n := int(body[0])
		if len(body) < 1+n || n%2 != 0 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		values := make([]uint16, n/2)
		for i := range values {
			values[i] = binary.BigEndian.Uint16(body[1+2*i : 3+2*i])
		}
		return &PDUResponse{
			FunctionCode: fc,
			Kind:         KindReadRegisters,
			Registers:    &ReadRegisters{Bytes: uint8(n), Values: values},
			Raw:          raw,
		}, nil

	case FuncWriteSingleCoil:
		if len(body) < 4 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		address := binary.BigEndian.Uint16(body[0:2])
		value := binary.BigEndian.Uint16(body[2:4])
		return &PDUResponse{
			FunctionCode: fc,
			Kind:         KindWriteBit,
			Bit:          &WriteBit{Address: address, Value: value == 0xFF00},
			Raw:          raw,
		}, nil

	case FuncWriteSingleRegister:
		if len(body) < 4 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		address := binary.BigEndian.Uint16(body[0:2])
		value := binary.BigEndian.Uint16(body[2:4])
		return &PDUResponse{
			FunctionCode: fc,
			Kind:         KindWriteRegister,
			Register:     &WriteRegister{Address: address, Value: value},
			Raw:          raw,
		}, nil

	case FuncWriteMultipleCoils, FuncWriteMultipleRegisters:
		if len(body) < 4 {
			return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalDataValue}
		}
		address := binary.BigEndian.Uint16(body[0:2])
		quantity := binary.BigEndian.Uint16(body[2:4])
		return &PDUResponse{
			FunctionCode: fc,
			Kind:         KindWriteMultiple,
			Multi:        &WriteMultiple{Address: address, Quantity: quantity},
			Raw:          raw,
		}, nil

	default:
		return nil, &ModbusException{FunctionCode: fc, Code: ExcIllegalFunctionCode}
	}
}
