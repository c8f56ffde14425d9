package amqp

import (
	"encoding/json"
	"time"
)

// ReportJobMessage asks a worker to regenerate one client's report. It
// carries only the client name; the worker reads the client folder itself.
type ReportJobMessage struct {
	Client      string    `json:"client"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReportJobMessage creates a job message for the given client.
func NewReportJobMessage(client string) *ReportJobMessage {
	return &ReportJobMessage{
		Client:      client,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportJobMessageFromJSON creates a message from JSON bytes
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
