package transport

import (
	"errors"
	"strings"
	"testing"
)

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonNone, "NONE"},
		{ReasonUnreachable, "UNREACHABLE"},
		{ReasonRejected, "REJECTED"},
		{ReasonTimeout, "TIMEOUT"},
		{ReasonProtocol, "PROTOCOL"},
		{Reason(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestResultShapes(t *testing.T) {
	r := Success()
	if !r.OK || r.Address != "" || r.HasAddress() {
		t.Errorf("Success() = %+v, want delivered without address", r)
	}

	r = SuccessWithAddress("192.168.1.50:80")
	if !r.OK || !r.HasAddress() || r.Address != "192.168.1.50:80" {
		t.Errorf("SuccessWithAddress() = %+v, want delivered with address", r)
	}

	cause := errors.New("connection refused")
	r = Failure(ReasonUnreachable, cause)
	if r.OK || r.HasAddress() {
		t.Errorf("Failure() = %+v, want not delivered", r)
	}
	if r.Reason != ReasonUnreachable {
		t.Errorf("Reason = %v, want %v", r.Reason, ReasonUnreachable)
	}
	if !errors.Is(r.Err, cause) {
		t.Errorf("Err = %v, want wrapped %v", r.Err, cause)
	}
}

func TestResultString(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{"delivered", Success(), "delivered"},
		{"with address", SuccessWithAddress("10.0.0.9:80"), "10.0.0.9:80"},
		{"failure reason", Failure(ReasonRejected, nil), "REJECTED"},
		{"failure cause", Failure(ReasonTimeout, errors.New("deadline exceeded")), "deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); !strings.Contains(got, tt.want) {
				t.Errorf("String() = %q, want substring %q", got, tt.want)
			}
		})
	}
}
