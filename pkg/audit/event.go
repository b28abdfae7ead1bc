// Package audit provides audit logging for provisioning operations
// submitted to the SDX controller.
package audit

import (
	"fmt"
	"time"
)

// Event records one provisioning operation against the controller.
type Event struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	User       string        `json:"user"`
	Operation  string        `json:"operation"`
	ServiceID  string        `json:"service_id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Endpoints  []string      `json:"endpoints,omitempty"`
	StatusCode int           `json:"status_code"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	User        string
	Operation   string
	ServiceID   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Operation: operation,
	}
}

// WithServiceID sets the L2VPN service identifier
func (e *Event) WithServiceID(serviceID string) *Event {
	e.ServiceID = serviceID
	return e
}

// WithName sets the L2VPN name
func (e *Event) WithName(name string) *Event {
	e.Name = name
	return e
}

// WithEndpoints sets the endpoint summary ("port_id vlan" per entry)
func (e *Event) WithEndpoints(endpoints ...string) *Event {
	e.Endpoints = endpoints
	return e
}

// WithOutcome records the envelope status the operation ended with
func (e *Event) WithOutcome(statusCode int, errMsg string) *Event {
	e.StatusCode = statusCode
	e.Success = statusCode >= 200 && statusCode < 300
	e.Error = errMsg
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
