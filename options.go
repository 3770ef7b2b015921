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
	"time"

	"go.uber.org/zap"
)

// RetryWhen decides, after attempt errorCount has failed with err, whether the
// pipeline should retry. Returning nil retries; returning a non-nil error aborts
// the request with that error (spec §4.4 step 5).
type RetryWhen func(m *Master, retryLimit, errorCount int, err error, req RequestInfo) error

// RequestInfo is the read-only view of an in-flight request a RetryWhen predicate
// may inspect.
type RequestInfo struct {
	ID           uint64
	FunctionCode FunctionCode
}

// DefaultRetryWhen retries iff the failing error is a timeout and errorCount is
// still below retryLimit (spec §7 "Default predicate retries iff the underlying
// error is a timeout and errorCount < retry").
func DefaultRetryWhen(m *Master, retryLimit, errorCount int, err error, req RequestInfo) error {
	if errorCount >= retryLimit {
		return err
	}
	if _, ok := err.(*TimeoutError); ok {
		return nil
	}
	return err
}

// MasterConfig configures a Master for its whole lifetime. Per-call overrides are
// supplied via RequestOption (spec §6 "Request options").
type MasterConfig struct {
	Retry             int
	Timeout           time.Duration
	InactivityTimeout time.Duration
	RetryWhen         RetryWhen
	QueueDepth        int
	Logger            *zap.Logger
}

// DefaultMasterConfig returns the spec §4.4 defaults (retry=0, timeout=5s).
func DefaultMasterConfig() MasterConfig {
	return MasterConfig{
		Retry:             0,
		Timeout:           5 * time.Second,
		InactivityTimeout: 60 * time.Second,
		RetryWhen:         DefaultRetryWhen,
		QueueDepth:        64,
	}
}

func (c MasterConfig) validate() error {
	if c.Timeout < 50*time.Millisecond {
		return &ValidationError{Field: "timeout", Reason: "must be >= 50ms"}
	}
	if c.Retry < 0 {
		return &ValidationError{Field: "retry", Reason: "must be >= 0"}
	}
	if c.InactivityTimeout <= 0 {
		return &ValidationError{Field: "inactivityTimeout", Reason: "must be > 0 (spec §9 open question 4)"}
	}
	if c.QueueDepth <= 0 {
		return &ValidationError{Field: "queueDepth", Reason: "must be > 0"}
	}
	return nil
}

// A MasterOption customizes a MasterConfig at construction time, mirroring the
// teacher's TCPTransporterConfig functional-option idiom.
type MasterOption func(*MasterConfig)

func WithMasterRetry(retry int) MasterOption {
	return func(c *MasterConfig) { c.Retry = retry }
}

func WithMasterTimeout(d time.Duration) MasterOption {
	return func(c *MasterConfig) { c.Timeout = d }
}

func WithInactivityTimeout(d time.Duration) MasterOption {
	return func(c *MasterConfig) { c.InactivityTimeout = d }
}

func WithRetryWhen(fn RetryWhen) MasterOption {
	return func(c *MasterConfig) { c.RetryWhen = fn }
}

func WithQueueDepth(n int) MasterOption {
	return func(c *MasterConfig) { c.QueueDepth = n }
}

func WithLogger(log *zap.Logger) MasterOption {
	return func(c *MasterConfig) { c.Logger = log }
}

// requestOptions holds the per-call overrides a RequestOption applies on top of
// the Master's MasterConfig.
type requestOptions struct {
	retry     *int
	timeout   *time.Duration
	retryWhen RetryWhen
	logger    *zap.Logger
}

// RequestOption overrides retry, timeout, retryWhen, or the log sink for a
// single call (spec §6).
type RequestOption func(*requestOptions)

func WithRetry(retry int) RequestOption {
	return func(o *requestOptions) { o.retry = &retry }
}

func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = &d }
}

func WithRequestRetryWhen(fn RetryWhen) RequestOption {
	return func(o *requestOptions) { o.retryWhen = fn }
}

// WithRequestLogger routes this call's Request/Response/Exception/Error events
// to log instead of the Master's configured Logger, e.g. to attach a
// request-scoped field a caller wants on every event for one call.
func WithRequestLogger(log *zap.Logger) RequestOption {
	return func(o *requestOptions) { o.logger = log }
}

func (m *Master) resolveOptions(opts []RequestOption) (retry int, timeout time.Duration, retryWhen RetryWhen, log logSink) {
	ro := requestOptions{}
	for _, o := range opts {
		o(&ro)
	}
	retry, timeout, retryWhen, log = m.cfg.Retry, m.cfg.Timeout, m.cfg.RetryWhen, m.log
	if ro.retry != nil {
		retry = *ro.retry
	}
	if ro.timeout != nil {
		timeout = *ro.timeout
	}
	if ro.retryWhen != nil {
		retryWhen = ro.retryWhen
	}
	if ro.logger != nil {
		log = newLogSink(ro.logger)
	}
	return
}
