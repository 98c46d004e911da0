package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ChatStatus is the lifecycle state of a conversation.
type ChatStatus string

const (
	StatusNew       ChatStatus = "NEW"
	StatusActive    ChatStatus = "ACTIVE"
	StatusClosed    ChatStatus = "CLOSED"
	StatusEscalated ChatStatus = "ESCALATED"
)

// Chat is a conversation summary as the backend reports it.
type Chat struct {
	ID                 string     `json:"id"`
	Status             ChatStatus `json:"status"`
	UnreadCount        int        `json:"unread_count"`
	Note               string     `json:"note,omitempty"`
	TgID               int64      `json:"tg_id,omitempty"`
	FirstName          string     `json:"first_name,omitempty"`
	TgUsername         string     `json:"tg_username,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	LastMessagePreview string     `json:"last_message_preview,omitempty"`
}

// Title returns the display name for a chat.
func (c Chat) Title() string {
	if c.FirstName != "" {
		return c.FirstName
	}
	if c.TgUsername != "" {
		return "@" + c.TgUsername
	}
	return c.ID
}

// ChatPage is one page of the chat list, most recently active first.
type ChatPage struct {
	Items      []Chat
	NextCursor string
	HasMore    bool
}

// Chats fetches one page of the conversation list, optionally filtered by
// status. Cursor semantics match Messages: derived from the last item,
// HasMore inferred from a full page.
func (c *Client) Chats(ctx context.Context, status ChatStatus, cursor string, limit int) (ChatPage, error) {
	if limit <= 0 {
		limit = ChatPageLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if status != "" {
		q.Set("status", string(status))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var items []Chat
	if err := c.do(ctx, http.MethodGet, "/api/chats", q, nil, &items); err != nil {
		return ChatPage{}, err
	}

	page := ChatPage{Items: items, HasMore: len(items) == limit}
	if len(items) > 0 {
		last := items[len(items)-1]
		at := time.Time{}
		if last.LastMessageAt != nil {
			at = *last.LastMessageAt
		}
		page.NextCursor = EncodeCursor(at, last.ID)
	}
	return page, nil
}

// Chat fetches a single conversation summary.
func (c *Client) Chat(ctx context.Context, chatID string) (Chat, error) {
	var chat Chat
	path := fmt.Sprintf("/api/chats/%s", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

// UpdateNote saves the operator note for a chat.
func (c *Client) UpdateNote(ctx context.Context, chatID, note string) error {
	path := fmt.Sprintf("/api/chats/%s/note", url.PathEscape(chatID))
	return c.do(ctx, http.MethodPatch, path, nil, map[string]string{"note": note}, nil)
}

// CloseChat marks a conversation resolved.
func (c *Client) CloseChat(ctx context.Context, chatID string) (Chat, error) {
	var chat Chat
	path := fmt.Sprintf("/api/chats/%s/close", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

// EscalateChat hands a conversation to a human supervisor queue.
func (c *Client) EscalateChat(ctx context.Context, chatID string) (Chat, error) {
	var chat Chat
	path := fmt.Sprintf("/api/chats/%s/escalate", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &chat); err != nil {
		return Chat{}, err
	}
	return chat, nil
}

// MarkRead clears the unread counter after the operator has viewed a chat.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	path := fmt.Sprintf("/api/chats/%s/read", url.PathEscape(chatID))
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}
