// Package domain holds the presence event record shared by the OTel log adapter, the Kafka
// producer and the Loki worker.
package domain

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	EventGRPCRequest  = "grpc_request"
	EventHeartbeat    = "heartbeat"
	EventTransition   = "presence_transition"
	EventCheckIn      = "check_in"
	EventCheckOut     = "check_out"
	EventAutoCheckout = "auto_checkout"
)

// Event is one presence event. It is company-scoped; employee and session are optional.
// The JSON form is the Kafka message value.
type Event struct {
	CompanyID  string          `json:"company_id"`
	EmployeeID string          `json:"employee_id,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	EventType  string          `json:"event_type"`
	Source     string          `json:"source"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// New returns an event stamped at at, with meta marshalled to JSON. A meta that cannot be
// marshalled is dropped; events are best-effort.
func New(eventType, source, companyID, employeeID, sessionID string, meta any, at time.Time) *Event {
	e := &Event{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		SessionID:  sessionID,
		EventType:  eventType,
		Source:     source,
		CreatedAt:  at.UTC(),
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}
