package timeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// tempIDPrefix marks client-originated ids so they can never collide with
// server-assigned ones.
const tempIDPrefix = "temp-"

// Draft is the full composer state captured at the moment of a send. On
// failure it is restored verbatim, so it carries everything the composer
// holds, not just the text.
type Draft struct {
	Text            string
	Attachments     []Attachment
	Buttons         [][]InlineButton
	ReplyToServerID int64
}

// Empty reports whether there is nothing to send.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Attachments) == 0
}

// ButtonsOmitted reports whether the delivery transport will drop the inline
// buttons: it cannot attach them to a multi-file send. The composer warns
// about this before the send, it is not an error.
func (d Draft) ButtonsOmitted() bool {
	return len(d.Attachments) > 1 && len(d.Buttons) > 0
}

// EffectiveButtons returns the buttons that will actually be delivered.
func (d Draft) EffectiveButtons() [][]InlineButton {
	if d.ButtonsOmitted() {
		return nil
	}
	return d.Buttons
}

// NominalType derives the message type shown for the draft: the first
// attachment's mime decides, text otherwise.
func (d Draft) NominalType() MessageType {
	if len(d.Attachments) == 0 {
		return TypeText
	}
	return TypeForMime(d.Attachments[0].Mime)
}

// NewTempID returns a fresh client-side message id.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether an id was minted by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// NewPending builds the optimistic timeline entry for a draft. The entry
// appears at the newest end immediately and is replaced by the server record
// on acknowledgment.
func NewPending(chatID string, d Draft, at time.Time) Message {
	return Message{
		ID:              NewTempID(),
		ChatID:          chatID,
		Direction:       DirectionOut,
		Type:            d.NominalType(),
		Text:            d.Text,
		Attachments:     append([]Attachment(nil), d.Attachments...),
		InlineButtons:   d.EffectiveButtons(),
		ReplyToServerID: d.ReplyToServerID,
		CreatedAt:       at,
		Pending:         true,
	}
}
