package modbus

import (
	"encoding/binary"
	"fmt"
)

const tcpHeaderLength = 7
const protocolIdentifier = 0x0000

// tcpFrame is a parsed MBAP header plus its PDU (spec §3 "TCP ADU").
type tcpFrame struct {
	transactionID uint16
	unitID        uint8
	pdu           []byte
}

// packTCP wraps pdu with a 7-byte MBAP header, grounded on the teacher's
// tcp_packager.go Pack.
func packTCP(transactionID uint16, unitID uint8, pdu []byte) []byte {
	length := uint16(len(pdu) + 1)
	frame := make([]byte, tcpHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], transactionID)
	binary.BigEndian.PutUint16(frame[2:4], protocolIdentifier)
	binary.BigEndian.PutUint16(frame[4:6], length)
	frame[6] = unitID
	copy(frame[7:], pdu)
	return frame
}

// EncodeTCPADU wraps pdu in an MBAP header. It is exported for callers
// building a test slave or gateway that needs to speak the wire format
// without depending on a Master (spec §4.2).
func EncodeTCPADU(transactionID uint16, unitID uint8, pdu []byte) []byte {
	return packTCP(transactionID, unitID, pdu)
}

// DecodedTCPADU is one parsed MBAP frame, returned by DecodeTCPADUs.
type DecodedTCPADU struct {
	TransactionID uint16
	UnitID        uint8
	PDU           []byte
}

// DecodeTCPADUs extracts every complete frame present in buf and returns the
// unconsumed remainder, for the same reasons as EncodeTCPADU.
func DecodeTCPADUs(buf []byte) (frames []DecodedTCPADU, rest []byte, err error) {
	parsed, rest, err := parseTCPFrames(buf)
	if err != nil {
		return nil, nil, err
	}
	out := make([]DecodedTCPADU, len(parsed))
	for i, f := range parsed {
		out[i] = DecodedTCPADU{TransactionID: f.transactionID, UnitID: f.unitID, PDU: f.pdu}
	}
	return out, rest, nil
}

// parseTCPFrames extracts every complete frame present in buf and returns the
// unconsumed remainder. It is re-entrant across partial reads and drains multiple
// frames from a single read, satisfying spec §4.3.1 and invariant (iii): the
// returned rest slice never contains a fully parsed frame.
func parseTCPFrames(buf []byte) (frames []tcpFrame, rest []byte, err error) {
	for {
		if len(buf) < tcpHeaderLength {
			return frames, buf, nil
		}
		length := binary.BigEndian.Uint16(buf[4:6])
		frameLen := 6 + int(length)
		if length == 0 {
			return frames, buf, fmt.Errorf("modbus: TCP frame has zero length field")
		}
		if len(buf) < frameLen {
			return frames, buf, nil
		}
		protocolID := binary.BigEndian.Uint16(buf[2:4])
		if protocolID != protocolIdentifier {
			return frames, buf, fmt.Errorf("modbus: unexpected protocol identifier 0x%04X", protocolID)
		}
		frame := tcpFrame{
			transactionID: binary.BigEndian.Uint16(buf[0:2]),
			unitID:        buf[6],
			pdu:           append([]byte(nil), buf[7:frameLen]...),
		}
		frames = append(frames, frame)
		buf = buf[frameLen:]
	}
}
