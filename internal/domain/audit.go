package domain

import (
	"encoding/json"
	"time"
)

type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditError   AuditStatus = "error"
)

// AuditEntry is an append-only record of a tool, search or booking action.
type AuditEntry struct {
	ID              string
	PropertyID      string
	ConversationID  *string
	Source          Channel
	ToolName        string
	Description     string
	Status          AuditStatus
	RequestPayload  json.RawMessage
	ResponsePayload json.RawMessage
	CreatedAt       time.Time
}

type AuditQuery struct {
	PropertyID string
	Source     *Channel
	Limit      int
	// Before pages strictly older entries; nil starts at the newest.
	Before *AuditCursor
}

type AuditCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

type AuditPage struct {
	Items      []AuditEntry
	NextCursor *string
}
