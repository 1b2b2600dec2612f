// Package transport holds the wire types of the HTTP API: request bodies and
// the response envelope shared by every endpoint.
package transport

import "encoding/json"

// Envelope wraps every API response. Task and chat payloads ride in Data;
// failures carry a machine-readable Code (the domain error code) next to a
// caller-safe Error message. Meta is reserved for pagination hints.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess wraps a payload, for example a task, a task list or a chat
// result.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError wraps a failure. Code is one of the domain error codes; internal
// detail never travels here.
func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String renders the envelope as JSON for logging.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
