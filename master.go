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

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const maxRTUFrame = 256

// decodedFrame is one frame extracted from the receive buffer, transport-agnostic.
type decodedFrame struct {
	transactionID uint16 // meaningful for TCP only
	address       uint8
	pdu           []byte
}

// aduCodec wraps an outbound PDU in transport framing and extracts inbound
// frames from the accumulating receive buffer (spec §4.3).
type aduCodec interface {
	wrap(address uint8, transactionID uint16, pdu []byte) []byte
	extract(buf []byte) (frames []decodedFrame, rest []byte, err error)
}

// Master owns one connection and serializes requests to it (spec §4.4). One
// Master is built around one aduCodec (TCP or RTU); the request pipeline, retry
// logic, and public per-function-code API are identical across both transports.
type Master struct {
	cfg        MasterConfig
	log        logSink
	endpoint   Endpoint
	codec      aduCodec
	address    uint8
	isTCP      bool
	addrString string

	mu         sync.Mutex
	state      ConnState
	buf        []byte
	currentReq *inFlightRequest
	shutdown   chan struct{}
	cancel     context.CancelFunc
	group      *errgroup.Group

	queue     chan *inFlightRequest
	resetCh   chan struct{}
	idCounter uint64
	txCounter uint32
}

func newMaster(endpoint Endpoint, codec aduCodec, address uint8, isTCP bool, addrString string, opts ...MasterOption) (*Master, error) {
	cfg := DefaultMasterConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Master{
		cfg:        cfg,
		log:        newLogSink(cfg.Logger),
		endpoint:   endpoint,
		codec:      codec,
		address:    address,
		isTCP:      isTCP,
		addrString: addrString,
		state:      StateClosed,
		queue:      make(chan *inFlightRequest, cfg.QueueDepth),
		resetCh:    make(chan struct{}, 1),
	}
	endpoint.OnData(m.handleData)
	endpoint.OnError(func(err error) { m.failConnection(NewMasterError(err)) })
	endpoint.OnClose(func() { m.failConnection(NewMasterError(ErrNotOpen)) })
	return m, nil
}

// State returns the master's current connection state.
func (m *Master) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open establishes the connection and starts the request pipeline. Calling it
// while already Open first closes the existing connection (spec §4.4: "the
// source chooses" close-then-reopen over rejecting).
func (m *Master) Open(ctx context.Context) error {
	if m.State() == StateOpen {
		if err := m.Close(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.state = StateOpening
	m.shutdown = make(chan struct{})
	m.mu.Unlock()

	m.log.connecting(m.addrString)
	if err := m.endpoint.Open(ctx); err != nil {
		m.mu.Lock()
		m.state = StateClosed
		m.mu.Unlock()
		return NewMasterError(err)
	}

	groupCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(groupCtx)
	m.mu.Lock()
	m.cancel = cancel
	m.group = g
	m.state = StateOpen
	m.mu.Unlock()

	g.Go(func() error { return m.consumeLoop(gctx) })
	g.Go(func() error { return m.watchdogLoop(gctx) })

	m.log.connected(m.addrString)
	return nil
}

// Close performs a graceful, synchronous shutdown; any in-flight or queued
// requests fail promptly with a MasterError (spec §5 "Cancellation").
func (m *Master) Close() error {
	m.mu.Lock()
	if m.state != StateOpen && m.state != StateOpening {
		m.mu.Unlock()
		return nil
	}
	m.state = StateClosing
	m.mu.Unlock()

	m.teardown(nil)

	m.mu.Lock()
	m.state = StateClosed
	m.mu.Unlock()
	m.log.disconnected(m.addrString, nil)
	return nil
}

// failConnection is invoked by the endpoint's OnClose/OnError callbacks and by
// the inactivity watchdog; it transitions Open -> Closed and fails in-flight work.
// The teardown runs on its own goroutine: it waits for the pipeline goroutines
// and closes the endpoint, and the callers may be one of those goroutines or
// inside the endpoint's own close path.
func (m *Master) failConnection(cause error) {
	m.mu.Lock()
	if m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	m.state = StateClosing
	m.mu.Unlock()

	go func() {
		m.teardown(cause)

		m.mu.Lock()
		m.state = StateClosed
		m.mu.Unlock()
		m.log.disconnected(m.addrString, cause)
	}()
}

func (m *Master) teardown(cause error) {
	m.mu.Lock()
	shutdown := m.shutdown
	cancel := m.cancel
	group := m.group
	m.mu.Unlock()

	if shutdown != nil {
		select {
		case <-shutdown:
		default:
			close(shutdown)
		}
	}
	if cancel != nil {
		cancel()
	}
	_ = m.endpoint.Close()
	if group != nil {
		_ = group.Wait()
	}
	if cause == nil {
		cause = NewMasterError(ErrNotOpen)
	}
	m.failAllInFlight(cause)
}

func (m *Master) failAllInFlight(cause error) {
	m.mu.Lock()
	current := m.currentReq
	m.currentReq = nil
	m.buf = nil
	m.mu.Unlock()

	if current != nil {
		select {
		case current.frameCh <- frameDelivery{err: cause}:
		default:
		}
	}
	for {
		select {
		case req := <-m.queue:
			select {
			case req.resultCh <- requestResult{err: cause}:
			default:
			}
		default:
			return
		}
	}
}

func (m *Master) resetWatchdog() {
	select {
	case m.resetCh <- struct{}{}:
	default:
	}
}

func (m *Master) watchdogLoop(ctx context.Context) error {
	timer := time.NewTimer(m.cfg.InactivityTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.resetCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.cfg.InactivityTimeout)
		case <-timer.C:
			m.failConnection(NewMasterError(fmt.Errorf("inactivity timeout after %s", m.cfg.InactivityTimeout)))
			return nil
		}
	}
}

func (m *Master) consumeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-m.queue:
			if req.canceled {
				continue
			}
			result := m.attempt(ctx, req)
			select {
			case req.resultCh <- result:
			default:
			}
		}
	}
}

func (m *Master) nextTransactionID() uint16 {
	return uint16(atomic.AddUint32(&m.txCounter, 1) % 0x10000)
}

func (m *Master) handleData(b []byte) {
	m.resetWatchdog()
	m.log.bytesReceived(len(b))

	m.mu.Lock()
	m.buf = append(m.buf, b...)
	frames, rest, err := m.codec.extract(m.buf)
	m.buf = rest
	req := m.currentReq
	m.mu.Unlock()

	if err != nil {
		if req != nil {
			select {
			case req.frameCh <- frameDelivery{err: err}:
			default:
			}
		}
		return
	}

	for _, f := range frames {
		m.log.packetsReceived(1)
		if req == nil || !m.matches(req, f) {
			continue
		}
		select {
		case req.frameCh <- frameDelivery{pdu: f.pdu}:
		default:
		}
	}
}

// matches implements spec §4.4's matcher: TCP keys on (transactionID, unitID);
// RTU is always true, valid only because the pipeline never has more than one
// request in flight (spec §9 open question 3).
func (m *Master) matches(req *inFlightRequest, f decodedFrame) bool {
	if m.isTCP {
		return f.transactionID == req.transactionID && f.address == m.address
	}
	return true
}

func (m *Master) transmitAndWait(ctx context.Context, req *inFlightRequest) ([]byte, error) {
	m.mu.Lock()
	if m.state != StateOpen {
		m.mu.Unlock()
		return nil, NewMasterError(ErrNotOpen)
	}
	if m.isTCP {
		req.transactionID = m.nextTransactionID()
	}
	m.buf = nil
	m.currentReq = req
	shutdown := m.shutdown
	frame := m.codec.wrap(m.address, req.transactionID, req.pdu)
	m.mu.Unlock()

	if err := m.endpoint.Write(frame); err != nil {
		m.clearCurrent(req)
		return nil, NewMasterError(err)
	}
	m.log.bytesTransmitted(len(frame))
	m.log.packetsTransmitted(1)
	m.resetWatchdog()

	timer := time.NewTimer(req.timeout)
	defer timer.Stop()

	select {
	case fd := <-req.frameCh:
		m.clearCurrent(req)
		if fd.err != nil {
			return nil, NewMasterError(fd.err)
		}
		return fd.pdu, nil
	case <-timer.C:
		m.clearCurrent(req)
		return nil, &TimeoutError{}
	case <-shutdown:
		m.clearCurrent(req)
		return nil, NewMasterError(ErrNotOpen)
	case <-ctx.Done():
		m.clearCurrent(req)
		return nil, &CancelError{}
	}
}

func (m *Master) clearCurrent(req *inFlightRequest) {
	m.mu.Lock()
	if m.currentReq == req {
		m.currentReq = nil
	}
	m.mu.Unlock()
}

func (m *Master) attempt(ctx context.Context, req *inFlightRequest) requestResult {
	errorCount := 0
	for {
		pdu, err := m.transmitAndWait(ctx, req)
		if err == nil {
			resp, exc := decodeResponse(pdu)
			if exc != nil {
				req.log.exception(req.id, exc)
				return requestResult{exc: exc}
			}
			req.log.response(req.id, req.fc, pdu)
			return requestResult{resp: resp}
		}
		if _, ok := err.(*CancelError); ok {
			return requestResult{err: err}
		}
		if te, ok := err.(*TimeoutError); ok {
			te.Attempts = errorCount + 1
		}
		req.log.requestError(req.id, err)
		info := RequestInfo{ID: req.id, FunctionCode: req.fc}
		if retryErr := req.retryWhen(m, req.retry, errorCount, err, info); retryErr != nil {
			return requestResult{err: retryErr}
		}
		errorCount++
	}
}

// do enqueues pdu and blocks until a matched response, an exhausted retry
// budget, cancellation, or connection termination resolves it (spec §4.4).
func (m *Master) do(ctx context.Context, fc FunctionCode, pdu []byte, opts ...RequestOption) (*PDUResponse, error) {
	retry, timeout, retryWhen, log := m.resolveOptions(opts)
	req := &inFlightRequest{
		id:        atomic.AddUint64(&m.idCounter, 1),
		pdu:       pdu,
		fc:        fc,
		retry:     retry,
		timeout:   timeout,
		retryWhen: retryWhen,
		log:       log,
		resultCh:  make(chan requestResult, 1),
		frameCh:   make(chan frameDelivery, 1),
	}
	req.log.request(req.id, fc, pdu)

	select {
	case m.queue <- req:
	default:
		return nil, ErrQueueFull
	}

	select {
	case res := <-req.resultCh:
		if res.exc != nil {
			return nil, res.exc
		}
		if res.err != nil {
			return nil, res.err
		}
		return res.resp, nil
	case <-ctx.Done():
		req.canceled = true
		return nil, &CancelError{}
	}
}

// ReadCoils reads n coils starting at address (spec §6).
func (m *Master) ReadCoils(ctx context.Context, address, quantity uint16, opts ...RequestOption) (*ReadBits, error) {
	pdu, err := EncodeReadCoils(address, quantity)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncReadCoils, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Bits, nil
}

// ReadDiscreteInputs reads n discrete inputs starting at address.
func (m *Master) ReadDiscreteInputs(ctx context.Context, address, quantity uint16, opts ...RequestOption) (*ReadBits, error) {
	pdu, err := EncodeReadDiscreteInputs(address, quantity)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncReadDiscreteInputs, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Bits, nil
}

// ReadHoldingRegisters reads n holding registers starting at address.
func (m *Master) ReadHoldingRegisters(ctx context.Context, address, quantity uint16, opts ...RequestOption) (*ReadRegisters, error) {
	pdu, err := EncodeReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncReadHoldingRegisters, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Registers, nil
}

// ReadInputRegisters reads n input registers starting at address.
func (m *Master) ReadInputRegisters(ctx context.Context, address, quantity uint16, opts ...RequestOption) (*ReadRegisters, error) {
	pdu, err := EncodeReadInputRegisters(address, quantity)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncReadInputRegisters, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Registers, nil
}

// WriteSingleCoil writes a single coil.
func (m *Master) WriteSingleCoil(ctx context.Context, address uint16, value bool, opts ...RequestOption) (*WriteBit, error) {
	pdu, err := EncodeWriteSingleCoil(address, value)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncWriteSingleCoil, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Bit, nil
}

// WriteSingleRegister writes a single holding register.
func (m *Master) WriteSingleRegister(ctx context.Context, address, value uint16, opts ...RequestOption) (*WriteRegister, error) {
	pdu, err := EncodeWriteSingleRegister(address, value)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncWriteSingleRegister, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Register, nil
}

// WriteMultipleCoils writes up to 1968 coils starting at address.
func (m *Master) WriteMultipleCoils(ctx context.Context, address uint16, values []bool, opts ...RequestOption) (*WriteMultiple, error) {
	pdu, err := EncodeWriteMultipleCoils(address, values)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncWriteMultipleCoils, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Multi, nil
}

// WriteMultipleRegisters writes up to 123 registers starting at address.
func (m *Master) WriteMultipleRegisters(ctx context.Context, address uint16, values []uint16, opts ...RequestOption) (*WriteMultiple, error) {
	pdu, err := EncodeWriteMultipleRegisters(address, values)
	if err != nil {
		return nil, err
	}
	resp, err := m.do(ctx, FuncWriteMultipleRegisters, pdu, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Multi, nil
}
