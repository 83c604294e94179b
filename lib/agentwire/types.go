// Package agentwire defines the cross-realm message shapes shared by the
// page agent and the bridge. Everything here must survive JSON
// serialization; no live references cross the boundary.
package agentwire

import "encoding/json"

// Bus topics.
const (
	TopicCommand      = "soundshift_command"
	TopicResponse     = "soundshift_response"
	TopicMediaCreated = "soundshift_media_created"
)

// Command kinds.
const (
	CmdCheckReady        = "checkReady"
	CmdCheckMediaElement = "checkMediaElement"
	CmdSetSpeed          = "setSpeed"
	CmdSetPreservesPitch = "setPreservesPitch"
)

// Command is a bridge -> agent request. Value carries the command argument
// when one exists: a JSON number for setSpeed, a JSON boolean for
// setPreservesPitch.
type Command struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// Response is an agent -> bridge reply, correlated to its Command by ID.
type Response struct {
	ID              string `json:"id"`
	Ready           *bool  `json:"ready,omitempty"`
	HasMediaElement *bool  `json:"hasMediaElement,omitempty"`
	Success         *bool  `json:"success,omitempty"`
	Error           string `json:"error,omitempty"`
}

// MediaCreated announces a newly captured media element to any listener on
// TopicMediaCreated.
type MediaCreated struct {
	ElementID string `json:"elementId"`
	Kind      string `json:"kind"`
}

// Helper constructors for Response

func NewReadyResponse(id string, ready bool) Response {
	return Response{ID: id, Ready: &ready}
}

func NewHasElementResponse(id string, has bool) Response {
	return Response{ID: id, HasMediaElement: &has}
}

func NewAckResponse(id string, success bool) Response {
	return Response{ID: id, Success: &success}
}

func NewErrorResponse(id, errMsg string) Response {
	success := false
	return Response{ID: id, Success: &success, Error: errMsg}
}
