package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/observability"
	"monobook/internal/domain"
)

// Auditor writes audit entries best-effort: failures are logged and dropped.
type Auditor struct {
	repo domain.AuditRepository
	now  func() time.Time
}

func NewAuditor(r domain.AuditRepository) *Auditor {
	return &Auditor{repo: r, now: time.Now}
}

// Call identifies who is acting: the property scope, front door and optional conversation.
type Call struct {
	PropertyID     string
	Channel        domain.Channel
	ConversationID *string
}

func (a *Auditor) Record(ctx context.Context, c Call, tool, description string, status domain.AuditStatus, req, resp any) {
	if a == nil || a.repo == nil {
		return
	}
	e := domain.AuditEntry{
		ID:              uuid.NewString(),
		PropertyID:      c.PropertyID,
		ConversationID:  c.ConversationID,
		Source:          c.Channel,
		ToolName:        tool,
		Description:     description,
		Status:          status,
		RequestPayload:  marshalPayload(req),
		ResponsePayload: marshalPayload(resp),
		CreatedAt:       a.now().UTC(),
	}
	if err := a.repo.InsertAudit(ctx, e); err != nil {
		observability.ObserveAuditFailure(tool)
		log.Warn().Err(err).Str("tool", tool).Str("property_id", c.PropertyID).Msg("audit write failed")
	}
}

func marshalPayload(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

type AuditLogRequest struct {
	PropertyID string
	Source     string
	Limit      int
	Cursor     string
}

type AuditLogItem struct {
	ID              string          `json:"id"`
	PropertyID      string          `json:"property_id"`
	ConversationID  *string         `json:"conversation_id"`
	Source          domain.Channel  `json:"source"`
	ToolName        string          `json:"tool_name"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AuditLogPage struct {
	Items      []AuditLogItem `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

// ListAuditLog pages entries newest first with an opaque cursor over (created_at, id).
func (a *Auditor) ListAuditLog(ctx context.Context, req AuditLogRequest) (AuditLogPage, error) {
	limit := req.Limit
	if limit == 0 {
		limit = 50
	}
	if limit < 1 || limit > 100 {
		return AuditLogPage{}, validation(CodeInvalidFilters, "limit must be between 1 and 100.")
	}
	q := domain.AuditQuery{PropertyID: req.PropertyID, Limit: limit + 1}
	if req.Source != "" {
		ch, err := domain.ParseChannel(req.Source)
		if err != nil {
			return AuditLogPage{}, validation(CodeInvalidFilters, fmt.Sprintf("Unknown source %q.", req.Source))
		}
		q.Source = &ch
	}
	if req.Cursor != "" {
		cur, err := decodeCursor(req.Cursor)
		if err != nil {
			return AuditLogPage{}, validation(CodeInvalidFilters, "Invalid cursor.")
		}
		q.Before = &cur
	}

	rows, err := a.repo.ListAudit(ctx, q)
	if err != nil {
		return AuditLogPage{}, persistence("list audit", err)
	}
	page := AuditLogPage{Items: make([]AuditLogItem, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next := encodeCursor(domain.AuditCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	for _, e := range rows {
		page.Items = append(page.Items, AuditLogItem{
			ID: e.ID, PropertyID: e.PropertyID, ConversationID: e.ConversationID, Source: e.Source,
			ToolName: e.ToolName, Description: e.Description, Status: string(e.Status),
			RequestPayload: e.RequestPayload, ResponsePayload: e.ResponsePayload, CreatedAt: e.CreatedAt,
		})
	}
	return page, nil
}

func encodeCursor(c domain.AuditCursor) string {
	b, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (domain.AuditCursor, error) {
	var c domain.AuditCursor
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return c, fmt.Errorf("incomplete cursor")
	}
	return c, nil
}
