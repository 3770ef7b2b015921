package modbus

import "encoding/binary"

// encodeRead builds the request PDU for function codes 1 to 4
// (the four read requests share the same address+quantity body shape).
func encodeRead(fc FunctionCode, address, quantity uint16, minQty, maxQty int) ([]byte, error) {
	if err := validateAddressQuantity(address, quantity, minQty, maxQty); err != nil {
		return nil, err
	}
	pdu := make([]byte, 5)
	pdu[0] = byte(fc)
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	return pdu, nil
}

// EncodeReadCoils builds the request PDU for FC 1.
func EncodeReadCoils(address, quantity uint16) ([]byte, error) {
	return encodeRead(FuncReadCoils, address, quantity, 1, 2000)
}

// EncodeReadDiscreteInputs builds the request PDU for FC 2.
func EncodeReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	return encodeRead(FuncReadDiscreteInputs, address, quantity, 1, 2000)
}

// EncodeReadHoldingRegisters builds the request PDU for FC 3.
func EncodeReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	return encodeRead(FuncReadHoldingRegisters, address, quantity, 1, 125)
}

// EncodeReadInputRegisters builds the request PDU for FC 4.
func EncodeReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return encodeRead(FuncReadInputRegisters, address, quantity, 1, 125)
}

// EncodeWriteSingleCoil builds the request PDU for FC 5.
func EncodeWriteSingleCoil(address uint16, value bool) ([]byte, error) {
	pdu := make([]byte, 5)
	pdu[0] = byte(FuncWriteSingleCoil)
	binary.BigEndian.PutUint16(pdu[1:3], address)
	v := uint16(0x0000)
	if value {
		v = 0xFF00
	}
	binary.BigEndian.PutUint16(pdu[3:5], v)
	return pdu, nil
}

// EncodeWriteSingleRegister builds the request PDU for FC 6.
func EncodeWriteSingleRegister(address, value uint16) ([]byte, error) {
	pdu := make([]byte, 5)
	pdu[0] = byte(FuncWriteSingleRegister)
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], value)
	return pdu, nil
}

// EncodeWriteMultipleCoils builds the request PDU for FC 15, bit-packing values
// per spec §4.1 (LSB-first within each byte).
func EncodeWriteMultipleCoils(address uint16, values []bool) ([]byte, error) {
	quantity := uint16(len(values))
	if err := validateAddressQuantity(address, quantity, 1, 1968); err != nil {
		return nil, err
	}
	packed := packBits(values)
	pdu := make([]byte, 6+len(packed))
	pdu[0] = byte(FuncWriteMultipleCoils)
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	pdu[5] = byte(len(packed))
	copy(pdu[6:], packed)
	return pdu, nil
}

// EncodeWriteMultipleRegisters builds the request PDU for FC 16.
func EncodeWriteMultipleRegisters(address uint16, values []uint16) ([]byte, error) {
	quantity := uint16(len(values))
	if err := validateAddressQuantity(address, quantity, 1, 123); err != nil {
		return nil, err
	}
	byteCount := 2 * len(values)
	pdu := make([]byte, 6+byteCount)
	pdu[0] = byte(FuncWriteMultipleRegisters)
	binary.BigEndian.PutUint16(pdu[1:3], address)
	binary.BigEndian.PutUint16(pdu[3:5], quantity)
	pdu[5] = byte(byteCount)
	for i, v := range values {
		binary.BigEndian.PutUint16(pdu[6+2*i:8+2*i], v)
	}
	return pdu, nil
}

// BuildException encodes a PDU exception response: [fc+0x80, code]. Fixed at
// fc+0x80 rather than the source's (fc+0x80) mod 0xFF — spec §9 open question 1 —
// the two formulas agree for function codes 1..126 (at 127, 0x7F+0x80 = 0xFF, which
// the modulo form maps to 0), and every function code this package defines is in that range.
func BuildException(fc FunctionCode, code ExceptionCode) []byte {
	return []byte{byte(fc) + 0x80, byte(code)}
}
