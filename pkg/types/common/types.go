// Package common holds wire types shared by every HTTP endpoint.
package common

import (
	"encoding/json"
	"time"
)

// Violation is one broken validation rule.
type Violation struct {
	Rule      string `json:"rule"`
	PolymerID string `json:"polymer_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Message   string `json:"message"`
}

// ErrorResponse is the body of every non-2xx API response. Section and
// Offset locate parse errors; Violations lists validation failures.
type ErrorResponse struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Detail     string      `json:"detail,omitempty"`
	Section    string      `json:"section,omitempty"`
	Offset     int         `json:"offset,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.Detail != "" {
		return "[" + e.Code + "] " + e.Message + ": " + e.Detail
	}
	return "[" + e.Code + "] " + e.Message
}

// ListResponse wraps a collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse never returns a nil Items slice.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth provides health information for a specific component.
type ComponentHealth struct {
	Status  HealthStatus `json:"status"`
	Latency Duration     `json:"latency"`
	Error   string       `json:"error,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Uptime     Duration                   `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// Duration is a time.Duration written as its string form ("1.5ms").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
