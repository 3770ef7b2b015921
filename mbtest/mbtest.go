// Package mbtest is an in-process fake slave used to drive a modbus.Master
// without a real socket or serial port. It turns a HandlerSet into a
// modbus.Endpoint by running Dispatch in reverse on every Write, with
// optional fault injection for timeout and retry scenarios.
package mbtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	modbus "github.com/wwhai/gomodbus-core"
)

// Mode selects which ADU framing the fake slave speaks.
type Mode int

const (
	ModeTCP Mode = iota
	ModeRTU
)

// Endpoint is a modbus.Endpoint backed by a HandlerSet instead of a wire.
// Delay and Drop, if set, are consulted once per received request (attempt
// numbers start at 1) and let a test simulate a slow or lossy slave.
type Endpoint struct {
	Mode     Mode
	Handlers modbus.HandlerSet
	Delay    func(attempt int) time.Duration
	Drop     func(attempt int) bool

	mu       sync.Mutex
	open     bool
	onOpen   func()
	onClose  func()
	onData   func([]byte)
	onError  func(error)
	attempts int32

	closeOnce sync.Once
}

// New returns a fake slave speaking mode, dispatching to handlers.
func New(mode Mode, handlers modbus.HandlerSet) *Endpoint {
	return &Endpoint{Mode: mode, Handlers: handlers}
}

func (e *Endpoint) OnOpen(f func())       { e.onOpen = f }
func (e *Endpoint) OnClose(f func())      { e.onClose = f }
func (e *Endpoint) OnData(f func([]byte)) { e.onData = f }
func (e *Endpoint) OnError(f func(error)) { e.onError = f }

func (e *Endpoint) Open(ctx context.Context) error {
	e.mu.Lock()
	e.open = true
	e.mu.Unlock()
	if e.onOpen != nil {
		e.onOpen()
	}
	return nil
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
	e.closeOnce.Do(func() {
		if e.onClose != nil {
			e.onClose()
		}
	})
	return nil
}

// Attempts returns how many requests have reached Write so far.
func (e *Endpoint) Attempts() int {
	return int(atomic.LoadInt32(&e.attempts))
}

// Write decodes one ADU, dispatches it, and delivers the encoded response
// through OnData — unless Drop says to discard this attempt. Without a Delay
// the response is delivered before Write returns; with one, from a separate
// goroutine once the delay has passed.
func (e *Endpoint) Write(frame []byte) error {
	attempt := int(atomic.AddInt32(&e.attempts, 1))

	var respPDU []byte
	var reply func([]byte)

	switch e.Mode {
	case ModeTCP:
		adus, _, err := modbus.DecodeTCPADUs(frame)
		if err != nil || len(adus) != 1 {
			return nil
		}
		adu := adus[0]
		respPDU = modbus.Dispatch(e.Handlers, adu.PDU)
		reply = func(pdu []byte) {
			e.deliver(modbus.EncodeTCPADU(adu.TransactionID, adu.UnitID, pdu))
		}
	case ModeRTU:
		address, pdu, err := modbus.DecodeRTUADU(frame)
		if err != nil {
			return nil
		}
		respPDU = modbus.Dispatch(e.Handlers, pdu)
		reply = func(pdu []byte) {
			e.deliver(modbus.EncodeRTUADU(address, pdu))
		}
	}

	if e.Drop != nil && e.Drop(attempt) {
		return nil
	}

	delay := time.Duration(0)
	if e.Delay != nil {
		delay = e.Delay(attempt)
	}
	if delay <= 0 {
		reply(respPDU)
		return nil
	}
	go func() {
		time.Sleep(delay)
		reply(respPDU)
	}()
	return nil
}

func (e *Endpoint) deliver(frame []byte) {
	e.mu.Lock()
	open := e.open
	e.mu.Unlock()
	if !open || e.onData == nil {
		return
	}
	e.onData(frame)
}
