package modbus

import (
	"testing"
	"time"
)

func TestDefaultRetryWhenRetriesOnTimeout(t *testing.T) {
	err := DefaultRetryWhen(nil, 2, 0, &TimeoutError{Attempts: 1}, RequestInfo{})
	if err != nil {
		t.Fatalf("expected retry (nil), got %v", err)
	}
}

func TestDefaultRetryWhenStopsAtRetryLimit(t *testing.T) {
	want := &TimeoutError{Attempts: 3}
	err := DefaultRetryWhen(nil, 2, 2, want, RequestInfo{})
	if err != want {
		t.Fatalf("expected the original error once retryLimit is reached, got %v", err)
	}
}

func TestDefaultRetryWhenDoesNotRetryNonTimeout(t *testing.T) {
	cause := &MasterError{}
	if err := DefaultRetryWhen(nil, 5, 0, cause, RequestInfo{}); err != cause {
		t.Fatalf("expected non-timeout errors to abort immediately, got %v", err)
	}
}

func TestMasterConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  MasterConfig
		ok   bool
	}{
		{"defaults", DefaultMasterConfig(), true},
		{"timeout too low", MasterConfig{Timeout: 1, InactivityTimeout: 1, QueueDepth: 1}, false},
		{"negative retry", MasterConfig{Timeout: time.Second, InactivityTimeout: time.Second, QueueDepth: 1, Retry: -1}, false},
		{"zero inactivity timeout", MasterConfig{Timeout: time.Second, QueueDepth: 1}, false},
		{"zero queue depth", MasterConfig{Timeout: time.Second, InactivityTimeout: time.Second}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
