package transport

import (
	"context"
	"net"
	"testing"
	"time"

	modbus "github.com/wwhai/gomodbus-core"
)

// serveOneTCPRequest accepts a single connection on ln, reads one MBAP frame,
// dispatches it against handlers, and writes back the encoded response.
func serveOneTCPRequest(t *testing.T, ln net.Listener, handlers modbus.HandlerSet) {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		t.Errorf("accept: %v", err)
		return
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Errorf("read: %v", err)
		return
	}
	adus, _, err := modbus.DecodeTCPADUs(buf[:n])
	if err != nil || len(adus) != 1 {
		t.Errorf("decode: %v (adus=%d)", err, len(adus))
		return
	}
	resp := modbus.Dispatch(handlers, adus[0].PDU)
	frame := modbus.EncodeTCPADU(adus[0].TransactionID, adus[0].UnitID, resp)
	if _, err := conn.Write(frame); err != nil {
		t.Errorf("write: %v", err)
	}
}

func TestTCPEndpointRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go serveOneTCPRequest(t, ln, modbus.HandlerSet{
		ReadHoldingRegisters: func(address, quantity uint16) ([]uint16, modbus.ExceptionCode) {
			return []uint16{0x1234}, 0
		},
	})

	ep := NewTCPEndpoint(ln.Addr().String())
	m, err := modbus.NewTCPMaster(ep, 1, modbus.WithMasterTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	regs, err := m.ReadHoldingRegisters(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if len(regs.Values) != 1 || regs.Values[0] != 0x1234 {
		t.Fatalf("unexpected registers: %+v", regs.Values)
	}
}
