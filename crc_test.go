package modbus

import "testing"

// TestCRC16KnownVector checks against the widely published Modbus example
// query 01 03 00 00 00 0A, whose CRC bytes are Lo=C5 Hi=CD.
func TestCRC16KnownVector(t *testing.T) {
	data := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	crc := crc16(data)
	if lo, hi := byte(crc), byte(crc>>8); lo != 0xC5 || hi != 0xCD {
		t.Fatalf("expected CRC lo=0xC5 hi=0xCD, got lo=0x%02X hi=0x%02X", lo, hi)
	}
}

func TestAppendCRCVerifyCRCRoundTrip(t *testing.T) {
	frame := appendCRC([]byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03})
	if len(frame) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(frame))
	}
	if !verifyCRC(frame) {
		t.Fatalf("expected CRC to verify")
	}
}

func TestVerifyCRCRejectsCorruption(t *testing.T) {
	frame := appendCRC([]byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03})
	frame[2] ^= 0xFF
	if verifyCRC(frame) {
		t.Fatalf("expected corrupted frame to fail CRC check")
	}
}
