// Package models defines the JSON bodies exchanged over the HTTP API.
package models

// InsertRequest is the body of POST /insert.
type InsertRequest struct {
	Text string `json:"text"`
}

// InsertResponse reports the position assigned to an inserted text.
type InsertResponse struct {
	Position int    `json:"position"`
	Status   string `json:"status"`
}

// RecordResponse is the body of GET /records/{position}.
type RecordResponse struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	InstanceID string `json:"instance_id"`
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
	State      string `json:"state"`
	IndexType  string `json:"index_type"`
	Model      string `json:"model"`
	Halted     bool   `json:"halted"`
	HaltReason string `json:"halt_reason,omitempty"`
	// Aligned is only set when verification was requested.
	Aligned *bool `json:"aligned,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
