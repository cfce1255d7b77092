package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/1broseidon/screenmask/internal/engine"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandActivate    CommandType = "ACTIVATE"
	CommandDeactivate  CommandType = "DEACTIVATE"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetMonitors CommandType = "GET_MONITORS"
	CommandReload      CommandType = "RELOAD"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OutcomeData is returned by ACTIVATE and RELOAD.
type OutcomeData struct {
	Outcome engine.Outcome `json:"outcome"`
	// Suspended is set when RELOAD found masks deactivated and left them so.
	Suspended bool `json:"suspended,omitempty"`
}

// DeactivateData is returned by DEACTIVATE.
type DeactivateData struct {
	Cleared int `json:"cleared"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	State             engine.State    `json:"state"`
	Suspended         bool            `json:"suspended"`
	LiveSurfaces      int             `json:"live_surfaces"`
	LiveRuleIDs       []string        `json:"live_rule_ids,omitempty"`
	Activations       int             `json:"activations"`
	LastActivated     time.Time       `json:"last_activated,omitempty"`
	LastOutcome       *engine.Outcome `json:"last_outcome,omitempty"`
	PermissionGranted bool            `json:"permission_granted"`
	RulesFile         string          `json:"rules_file"`
	UptimeSeconds     int64           `json:"uptime_seconds"`
	DaemonRunning     bool            `json:"daemon_running"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func parseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}
