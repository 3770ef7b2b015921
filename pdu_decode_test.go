package modbus

import "testing"

func TestDecodeResponseReadCoils(t *testing.T) {
	resp, exc := decodeResponse([]byte{0x01, 0x01, 0x15})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	want := []bool{true, false, true, false, true, false, false, false}
	if len(resp.Bits.Values) != len(want) {
		t.Fatalf("expected %d values, got %d: %+v", len(want), len(resp.Bits.Values), resp.Bits.Values)
	}
	for i, v := range want {
		if resp.Bits.Values[i] != v {
			t.Fatalf("bit %d: expected %v, got %v", i, v, resp.Bits.Values[i])
		}
	}
}

func TestDecodeResponseReadHoldingRegisters(t *testing.T) {
	resp, exc := decodeResponse([]byte{0x03, 0x04, 0xAF, 0xAF, 0xAF, 0xAF})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	want := []uint16{0xAFAF, 0xAFAF}
	for i, v := range want {
		if resp.Registers.Values[i] != v {
			t.Fatalf("register %d: expected 0x%04X, got 0x%04X", i, v, resp.Registers.Values[i])
		}
	}
}

func TestDecodeResponseWriteSingleCoil(t *testing.T) {
	resp, exc := decodeResponse([]byte{0x05, 0x00, 0xFF, 0xFF, 0x00})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	if resp.Bit.Address != 0x00FF || !resp.Bit.Value {
		t.Fatalf("unexpected decoded write-coil response: %+v", resp.Bit)
	}
}

func TestDecodeResponseExceptionByte(t *testing.T) {
	_, exc := decodeResponse([]byte{0xAB, 0x01})
	if exc == nil {
		t.Fatalf("expected exception")
	}
	if exc.FunctionCode != FuncMei || exc.Code != ExcIllegalFunctionCode {
		t.Fatalf("unexpected exception: %+v", exc)
	}
}

func TestDecodeResponseTruncatedBody(t *testing.T) {
	_, exc := decodeResponse([]byte{0x03, 0x04, 0xAF})
	if exc == nil || exc.Code != ExcIllegalDataValue {
		t.Fatalf("expected IllegalDataValue for truncated body, got %+v", exc)
	}
}
