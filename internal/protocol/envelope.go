// Package protocol defines the envelopes exchanged between the page, the
// bridge and the privileged gateway.
package protocol

import (
	"encoding/json"
	"errors"
)

// Action names a gateway operation.
type Action string

const (
	ActionGet      Action = "get"
	ActionSet      Action = "set"
	ActionGetAll   Action = "getAll"
	ActionRemove   Action = "remove"
	ActionClear    Action = "clear"
	ActionGetByURL Action = "getByUrl"
	ActionListURLs Action = "listUrls"
)

// Known reports whether a is one of the gateway actions.
func (a Action) Known() bool {
	switch a {
	case ActionGet, ActionSet, ActionGetAll, ActionRemove, ActionClear, ActionGetByURL, ActionListURLs:
		return true
	}
	return false
}

// Page-visible message types.
const (
	TypeStorage         = "postit:storage"
	TypeStorageResponse = "postit:storage:response"
	TypeExtensionReady  = "postit:extension:ready"
	TypeToggle          = "postit:toggle"
	TypeReady           = "postit:ready"
)

// Control types sent from the gateway to a bridge.
const (
	ControlToggle = "toggle"
)

// ErrUnknownAction is reported when the gateway is configured to answer
// unrecognized actions instead of ignoring them.
var ErrUnknownAction = errors.New("unknown action")

// Request is a gateway request.
type Request struct {
	Action Action          `json:"action" validate:"required"`
	Key    string          `json:"key,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	URL    string          `json:"url,omitempty"`
}

// Response is the single answer to a Request.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OK builds a successful response carrying data, which may be nil.
func OK(data json.RawMessage) Response {
	return Response{Success: true, Data: data}
}

// Fail builds a failed response from err.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Err converts a failed response into an error; it returns nil on success.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(r.Error)
}

// Message travels on the page-visible channel. Requests and responses
// carry the correlation ID; ready and toggle signals do not.
type Message struct {
	Type     string    `json:"type"`
	ID       uint64    `json:"id,omitempty"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// Control travels on the gateway's control channel.
type Control struct {
	Type string `json:"type"`
}

// StorageRequest wraps req for the page channel.
func StorageRequest(id uint64, req Request) Message {
	return Message{Type: TypeStorage, ID: id, Request: &req}
}

// StorageResponse wraps resp for the page channel.
func StorageResponse(id uint64, resp Response) Message {
	return Message{Type: TypeStorageResponse, ID: id, Response: &resp}
}

// Signal builds an untagged broadcast message.
func Signal(typ string) Message {
	return Message{Type: typ}
}
