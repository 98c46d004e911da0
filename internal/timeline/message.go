// Package timeline implements the message timeline engine for a single
// conversation: the ordered, deduplicated message buffer, backward cursor
// pagination state, the scroll anchor state machine, the virtualization
// window math, and the optimistic send pipeline helpers.
package timeline

import (
	"strings"
	"time"
)

// Direction indicates who originated a message.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// MessageType mirrors the transport-level message kinds.
type MessageType string

const (
	TypeText      MessageType = "text"
	TypePhoto     MessageType = "photo"
	TypeVideo     MessageType = "video"
	TypeAudio     MessageType = "audio"
	TypeVoice     MessageType = "voice"
	TypeDocument  MessageType = "document"
	TypeSticker   MessageType = "sticker"
	TypeAnimation MessageType = "animation"
	TypeVideoNote MessageType = "video_note"
	TypeLocation  MessageType = "location"
	TypeContact   MessageType = "contact"
	TypeVenue     MessageType = "venue"
	TypePoll      MessageType = "poll"
	TypeSystem    MessageType = "system"
)

// InlineButton is a single URL button under a message.
type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Attachment is an immutable file descriptor produced by the upload gateway.
// At least one of URL or LocalPath is set.
type Attachment struct {
	URL       string `json:"url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// Ref returns the usable source for the attachment.
func (a Attachment) Ref() string {
	if strings.TrimSpace(a.URL) != "" {
		return a.URL
	}
	return a.LocalPath
}

// Message is one timeline entry. ID is unique within a conversation buffer.
// ServerID stays zero for optimistic entries until the server acknowledges
// the send.
type Message struct {
	ID              string           `json:"id"`
	ChatID          string           `json:"chat_id"`
	Direction       Direction        `json:"direction"`
	Type            MessageType      `json:"type"`
	Text            string           `json:"text,omitempty"`
	Attachments     []Attachment     `json:"attachments,omitempty"`
	InlineButtons   [][]InlineButton `json:"inline_buttons,omitempty"`
	ServerID        int64            `json:"telegram_message_id,omitempty"`
	ReplyToServerID int64            `json:"reply_to_telegram_message_id,omitempty"`
	ForwardFromName string           `json:"forward_from_name,omitempty"`
	ForwardFromUser string           `json:"forward_from_username,omitempty"`
	IsEdited        bool             `json:"is_edited,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Pending         bool             `json:"-"`
}

// less defines the canonical buffer order: CreatedAt ascending, ties broken
// by ID so the order is total.
func less(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// TypeForMime maps an upload's mime type to the nominal message type used
// when the message carries attachments.
func TypeForMime(mime string) MessageType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case mime == "image/gif":
		return TypeAnimation
	case strings.HasPrefix(mime, "image/"):
		return TypePhoto
	case strings.HasPrefix(mime, "video/"):
		return TypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return TypeAudio
	default:
		return TypeDocument
	}
}
