package api

import (
	"context"
	"net/http"

	"github.com/tgdesk/tgdesk/internal/timeline"
)

// Template is a canned reply: text plus optional attachments and buttons,
// inserted into the composer as-is.
type Template struct {
	ID            string                    `json:"id"`
	Title         string                    `json:"title"`
	Text          string                    `json:"text,omitempty"`
	Attachments   []timeline.Attachment     `json:"attachments,omitempty"`
	InlineButtons [][]timeline.InlineButton `json:"inline_buttons,omitempty"`
}

// Templates lists the canned replies available to this operator.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var items []Template
	if err := c.do(ctx, http.MethodGet, "/api/templates", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
