package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/tgdesk/tgdesk/internal/timeline"
)

// Upload posts one file and returns the stored attachment descriptor. The
// whole file is buffered; operator attachments are small.
func (c *Client) Upload(ctx context.Context, name, mimeType string, r io.Reader) (timeline.Attachment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	if mimeType != "" {
		hdr.Set("Content-Type", mimeType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}
	size, err := io.Copy(part, r)
	if err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &body)
	if err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return timeline.Attachment{}, err
	}

	var att timeline.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return timeline.Attachment{}, fmt.Errorf("api: upload %s: %w", name, err)
	}
	if att.Name == "" {
		att.Name = name
	}
	if att.Mime == "" {
		att.Mime = mimeType
	}
	if att.Size == 0 {
		att.Size = size
	}
	return att, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
