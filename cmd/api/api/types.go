package api

import "encoding/json"

// Controller actions.
const (
	ActionInit            = "init"
	ActionSetPitch        = "setPitch"
	ActionSetSpeed        = "setSpeed"
	ActionGetSettings     = "getSettings"
	ActionLogEvent        = "logEvent"
	ActionCheckSpotifyTab = "checkSpotifyTab"
)

// ControlRequest is a controller -> server message. Value carries the
// action argument when one exists.
type ControlRequest struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// ControlResponse is the server's answer to one ControlRequest.
type ControlResponse struct {
	Success       bool             `json:"success"`
	Error         string           `json:"error,omitempty"`
	Settings      *SettingsPayload `json:"settings,omitempty"`
	HasSpotifyTab *bool            `json:"hasSpotifyTab,omitempty"`
	Tabs          []TabInfo        `json:"tabs,omitempty"`
}

// SettingsPayload is the persisted settings pair.
type SettingsPayload struct {
	Pitch int     `json:"pitch"`
	Speed float64 `json:"speed"`
}

// TabInfo describes one known host page.
type TabInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func okResponse() ControlResponse {
	return ControlResponse{Success: true}
}

func errResponse(msg string) ControlResponse {
	return ControlResponse{Success: false, Error: msg}
}
