package modbus

import (
	"bytes"
	"testing"
)

func TestPackParseTCPRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x00, 0x00, 0x02}
	frame := packTCP(7, 1, pdu)

	frames, rest, err := parseTCPFrames(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no remainder, got %d bytes", len(rest))
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.transactionID != 7 || f.unitID != 1 || !bytes.Equal(f.pdu, pdu) {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestParseTCPFramesPartialRead(t *testing.T) {
	frame := packTCP(1, 1, []byte{0x03, 0x00, 0x00, 0x00, 0x02})
	frames, rest, err := parseTCPFrames(frame[:5])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial header, got %d", len(frames))
	}
	if len(rest) != 5 {
		t.Fatalf("expected the partial bytes preserved, got %d", len(rest))
	}
}

func TestParseTCPFramesMultipleInOneRead(t *testing.T) {
	a := packTCP(1, 1, []byte{0x03, 0x00, 0x00, 0x00, 0x02})
	b := packTCP(2, 1, []byte{0x03, 0x00, 0x02, 0x00, 0x02})
	frames, rest, err := parseTCPFrames(append(append([]byte(nil), a...), b...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no remainder, got %d bytes", len(rest))
	}
	if len(frames) != 2 || frames[0].transactionID != 1 || frames[1].transactionID != 2 {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestParseTCPFramesRejectsZeroLength(t *testing.T) {
	frame := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01}
	if _, _, err := parseTCPFrames(frame); err == nil {
		t.Fatalf("expected error for zero-length MBAP field")
	}
}
