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

// rtuCodec implements aduCodec for Modbus RTU (spec §4.3.2): pack address+PDU+CRC,
// and parse a single accumulated burst as one frame. Unlike TCP there is no
// length field, so extract treats a CRC failure as "not enough bytes yet" until
// the buffer reaches the largest possible RTU frame (maxRTUFrame), at which point it is
// reported as a genuine error (spec §9 open question 2: verify, don't ignore).
type rtuCodec struct{}

func (rtuCodec) wrap(address uint8, _ uint16, pdu []byte) []byte {
	return packRTU(address, pdu)
}

func (rtuCodec) extract(buf []byte) ([]decodedFrame, []byte, error) {
	if len(buf) < 4 {
		return nil, buf, nil
	}
	frame, err := parseRTUFrame(buf)
	if err == nil {
		return []decodedFrame{{address: frame.address, pdu: frame.pdu}}, nil, nil
	}
	if err == ErrCRCMismatch {
		if len(buf) >= maxRTUFrame {
			return nil, nil, ErrCRCMismatch
		}
		return nil, buf, nil
	}
	return nil, buf, nil
}

// NewRTUMaster builds a Master for Modbus RTU over endpoint, addressing the
// given slave address (0 is the broadcast address, a Non-goal per spec §1).
func NewRTUMaster(endpoint Endpoint, slaveAddress uint8, opts ...MasterOption) (*Master, error) {
	if slaveAddress < 1 {
		return nil, &ValidationError{Field: "slaveAddress", Reason: "must be between 1 and 255"}
	}
	return newMaster(endpoint, rtuCodec{}, slaveAddress, false, "rtu", opts...)
}
