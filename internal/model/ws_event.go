package model

import "encoding/json"

const (
	WSEventAnnounce    = "server:announce"
	WSEventLogout      = "auth:logout"
	WSEventRoleChanged = "auth:role_changed"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type WSAnnounce struct {
	Message string `json:"message"`
}

type WSRoleChanged struct {
	Role Role `json:"role"`
}
