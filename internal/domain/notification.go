package domain

import "time"

// Notification is the payload handed to the messaging pipeline after a code is issued.
type Notification struct {
	Context   CodeContext `json:"context"`
	Name      string      `json:"name,omitempty"`
	CodeID    string      `json:"code"`
	Link      string      `json:"link"`
	ExpiresAt time.Time   `json:"expires_at"`
}
