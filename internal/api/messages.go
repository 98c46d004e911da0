package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tgdesk/tgdesk/internal/timeline"
)

// MessagePage is one backward page of history, newest first. NextCursor is
// derived from the oldest item and requests the page before it; it is only
// meaningful while HasMore is true.
type MessagePage struct {
	Items      []timeline.Message
	NextCursor string
	HasMore    bool
}

// EncodeCursor builds the opaque pagination cursor the backend expects:
// base64 of "created_at|id".
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Messages fetches one page of history older than cursor. An empty cursor
// requests the newest page. HasMore is inferred from a full page, so the
// very last page may come back empty.
func (c *Client) Messages(ctx context.Context, chatID, cursor string, limit int) (MessagePage, error) {
	if limit <= 0 {
		limit = MessagePageLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var items []timeline.Message
	path := fmt.Sprintf("/api/chats/%s/messages", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodGet, path, q, nil, &items); err != nil {
		return MessagePage{}, err
	}

	page := MessagePage{Items: items, HasMore: len(items) == limit}
	if len(items) > 0 {
		oldest := items[len(items)-1]
		page.NextCursor = EncodeCursor(oldest.CreatedAt, oldest.ID)
	}
	return page, nil
}

// SendRequest is the payload for sending one message. Type is the nominal
// kind derived from the first attachment; text-only sends carry "text".
type SendRequest struct {
	Type            timeline.MessageType      `json:"type"`
	Text            string                    `json:"text,omitempty"`
	Attachments     []timeline.Attachment     `json:"attachments,omitempty"`
	InlineButtons   [][]timeline.InlineButton `json:"inline_buttons,omitempty"`
	ReplyToServerID int64                     `json:"reply_to_telegram_message_id,omitempty"`
}

// SendRequestFromDraft applies the delivery policy (buttons dropped on
// multi-attachment sends) and shapes the wire payload.
func SendRequestFromDraft(d timeline.Draft) SendRequest {
	return SendRequest{
		Type:            d.NominalType(),
		Text:            d.Text,
		Attachments:     d.Attachments,
		InlineButtons:   d.EffectiveButtons(),
		ReplyToServerID: d.ReplyToServerID,
	}
}

// SendMessage delivers one message and returns the server's canonical
// record, used to reconcile the optimistic entry.
func (c *Client) SendMessage(ctx context.Context, chatID string, req SendRequest) (timeline.Message, error) {
	var msg timeline.Message
	path := fmt.Sprintf("/api/chats/%s/messages", url.PathEscape(chatID))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &msg); err != nil {
		return timeline.Message{}, err
	}
	return msg, nil
}

// DeleteMessage removes a message for both sides.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	path := fmt.Sprintf("/api/chats/%s/messages/%s", url.PathEscape(chatID), url.PathEscape(messageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
