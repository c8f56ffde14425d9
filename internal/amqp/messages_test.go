package amqp

import (
	"testing"
	"time"
)

func TestReportJobMessageRoundTrip(t *testing.T) {
	msg := NewReportJobMessage("acme")
	if msg.Client != "acme" {
		t.Errorf("Client = %q", msg.Client)
	}
	if msg.RequestedAt.IsZero() {
		t.Error("RequestedAt not set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ReportJobMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Client != msg.Client {
		t.Errorf("Client = %q, want %q", got.Client, msg.Client)
	}
	if !got.RequestedAt.Equal(msg.RequestedAt) {
		t.Errorf("RequestedAt = %v, want %v", got.RequestedAt, msg.RequestedAt)
	}
}

func TestReportJobMessageFromJSONInvalid(t *testing.T) {
	if _, err := ReportJobMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestReportJobMessageTimestampsAreUTC(t *testing.T) {
	msg := NewReportJobMessage("acme")
	if msg.RequestedAt.Location() != time.UTC {
		t.Errorf("RequestedAt location = %v, want UTC", msg.RequestedAt.Location())
	}
}
