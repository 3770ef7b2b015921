package modbus_test

import (
	"context"
	"testing"
	"time"

	modbus "github.com/wwhai/gomodbus-core"
	"github.com/wwhai/gomodbus-core/mbtest"
)

func TestMasterTCPReadHoldingRegistersRoundTrip(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{
		ReadHoldingRegisters: func(address, quantity uint16) ([]uint16, modbus.ExceptionCode) {
			if address != 0 || quantity != 2 {
				t.Fatalf("unexpected args: address=%d quantity=%d", address, quantity)
			}
			return []uint16{0xAFAF, 0xAFAF}, 0
		},
	})

	m, err := modbus.NewTCPMaster(ep, 1)
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	regs, err := m.ReadHoldingRegisters(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if len(regs.Values) != 2 || regs.Values[0] != 0xAFAF || regs.Values[1] != 0xAFAF {
		t.Fatalf("unexpected registers: %+v", regs.Values)
	}
}

func TestMasterRTUWriteSingleCoilRoundTrip(t *testing.T) {
	ep := mbtest.New(mbtest.ModeRTU, modbus.HandlerSet{
		WriteSingleCoil: func(address uint16, value bool) modbus.ExceptionCode {
			if address != 0x00FF || !value {
				t.Fatalf("unexpected args: address=0x%04X value=%v", address, value)
			}
			return 0
		},
	})

	m, err := modbus.NewRTUMaster(ep, 0x11)
	if err != nil {
		t.Fatalf("NewRTUMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	bit, err := m.WriteSingleCoil(context.Background(), 0x00FF, true)
	if err != nil {
		t.Fatalf("WriteSingleCoil: %v", err)
	}
	if bit.Address != 0x00FF || !bit.Value {
		t.Fatalf("unexpected response: %+v", bit)
	}
}

func TestMasterSurfacesSlaveException(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{
		ReadCoils: func(address, quantity uint16) ([]bool, modbus.ExceptionCode) {
			return nil, modbus.ExcIllegalDataAddress
		},
	})
	m, err := modbus.NewTCPMaster(ep, 1)
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	_, err = m.ReadCoils(context.Background(), 0, 1)
	exc, ok := err.(*modbus.ModbusException)
	if !ok {
		t.Fatalf("expected *ModbusException, got %T (%v)", err, err)
	}
	if exc.Code != modbus.ExcIllegalDataAddress {
		t.Fatalf("unexpected exception code: %v", exc.Code)
	}
}

func TestMasterValidationErrorNeverReachesTransport(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{})
	m, err := modbus.NewTCPMaster(ep, 1)
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if _, err := m.ReadCoils(context.Background(), 0xFFFF, 2); err == nil {
		t.Fatalf("expected a validation error")
	} else if _, ok := err.(*modbus.ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ep.Attempts() != 0 {
		t.Fatalf("expected the invalid request never to reach the wire, got %d attempts", ep.Attempts())
	}
}

func TestMasterTimeoutWithoutRetryFailsOnFirstAttempt(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{
		ReadHoldingRegisters: func(address, quantity uint16) ([]uint16, modbus.ExceptionCode) {
			return []uint16{1}, 0
		},
	})
	ep.Drop = func(attempt int) bool { return true }

	m, err := modbus.NewTCPMaster(ep, 1, modbus.WithMasterTimeout(50*time.Millisecond), modbus.WithMasterRetry(0))
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	_, err = m.ReadHoldingRegisters(context.Background(), 0, 1)
	if _, ok := err.(*modbus.TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T (%v)", err, err)
	}
	if ep.Attempts() != 1 {
		t.Fatalf("expected exactly 1 attempt with retry=0, got %d", ep.Attempts())
	}
}

func TestMasterRetrySucceedsOnThirdAttempt(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{
		ReadHoldingRegisters: func(address, quantity uint16) ([]uint16, modbus.ExceptionCode) {
			return []uint16{42}, 0
		},
	})
	ep.Drop = func(attempt int) bool { return attempt < 3 }

	m, err := modbus.NewTCPMaster(ep, 1, modbus.WithMasterTimeout(50*time.Millisecond), modbus.WithMasterRetry(2))
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	regs, err := m.ReadHoldingRegisters(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("expected success on the 3rd attempt, got %v", err)
	}
	if regs.Values[0] != 42 {
		t.Fatalf("unexpected register value: %d", regs.Values[0])
	}
	if ep.Attempts() != 3 {
		t.Fatalf("expected 3 attempts, got %d", ep.Attempts())
	}
}

func TestMasterStateTransitions(t *testing.T) {
	ep := mbtest.New(mbtest.ModeTCP, modbus.HandlerSet{})
	m, err := modbus.NewTCPMaster(ep, 1)
	if err != nil {
		t.Fatalf("NewTCPMaster: %v", err)
	}
	if m.State() != modbus.StateClosed {
		t.Fatalf("expected initial state Closed, got %v", m.State())
	}
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m.State() != modbus.StateOpen {
		t.Fatalf("expected state Open after Open, got %v", m.State())
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.State() != modbus.StateClosed {
		t.Fatalf("expected state Closed after Close, got %v", m.State())
	}
}
