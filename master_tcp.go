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

// tcpCodec implements aduCodec for Modbus TCP (spec §4.3.1). The address
// argument Master passes through is the configured unit ID.
type tcpCodec struct{}

func (tcpCodec) wrap(unitID uint8, transactionID uint16, pdu []byte) []byte {
	return packTCP(transactionID, unitID, pdu)
}

func (tcpCodec) extract(buf []byte) ([]decodedFrame, []byte, error) {
	frames, rest, err := parseTCPFrames(buf)
	if err != nil {
		return nil, nil, err
	}
	out := make([]decodedFrame, len(frames))
	for i, f := range frames {
		out[i] = decodedFrame{transactionID: f.transactionID, address: f.unitID, pdu: f.pdu}
	}
	return out, rest, nil
}

// NewTCPMaster builds a Master for Modbus TCP over endpoint, addressing the
// given unit ID (1..255; 0 is the broadcast address, a Non-goal per spec §1).
func NewTCPMaster(endpoint Endpoint, unitID uint8, opts ...MasterOption) (*Master, error) {
	if unitID < 1 {
		return nil, &ValidationError{Field: "unitId", Reason: "must be between 1 and 255"}
	}
	return newMaster(endpoint, tcpCodec{}, unitID, true, "tcp", opts...)
}
