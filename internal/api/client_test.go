package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tgdesk/tgdesk/internal/logging"
	"github.com/tgdesk/tgdesk/internal/timeline"
)

func serveJSON(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestEncodeCursor(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	cursor := EncodeCursor(at, "m17")

	raw, err := base64.StdEncoding.DecodeString(cursor)
	require.NoError(t, err)
	require.Equal(t, "2025-06-01T12:30:00Z|m17", string(raw))
}

func TestMessagesFullPage(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]timeline.Message, MessagePageLimit)
	for i := range items {
		items[i] = timeline.Message{
			ID:        fmt.Sprintf("m%02d", MessagePageLimit-i),
			ChatID:    "chat-1",
			Direction: timeline.DirectionIn,
			Type:      timeline.TypeText,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}

	var gotCursor, gotLimit, gotAuth string
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats/chat-1/messages", r.URL.Path)
		gotCursor = r.URL.Query().Get("cursor")
		gotLimit = r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, items)
	})

	page, err := client.Messages(context.Background(), "chat-1", "abc", 0)
	require.NoError(t, err)
	require.Equal(t, "abc", gotCursor)
	require.Equal(t, "50", gotLimit)
	require.Equal(t, "Bearer test-token", gotAuth)

	require.Len(t, page.Items, MessagePageLimit)
	require.True(t, page.HasMore)
	oldest := items[len(items)-1]
	require.Equal(t, EncodeCursor(oldest.CreatedAt, oldest.ID), page.NextCursor)
}

func TestMessagesShortPageEndsHistory(t *testing.T) {
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []timeline.Message{{ID: "m1", CreatedAt: time.Now().UTC()}})
	})

	page, err := client.Messages(context.Background(), "chat-1", "", 50)
	require.NoError(t, err)
	require.False(t, page.HasMore)
	require.Len(t, page.Items, 1)
}

func TestSendMessageAppliesButtonPolicy(t *testing.T) {
	draft := timeline.Draft{
		Text: "caption",
		Attachments: []timeline.Attachment{
			{URL: "https://files/a.png", Mime: "image/png"},
			{URL: "https://files/b.pdf", Mime: "application/pdf"},
		},
		Buttons: [][]timeline.InlineButton{{{Text: "Open", URL: "https://example.com"}}},
	}

	var received SendRequest
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(t, w, timeline.Message{
			ID:        "srv-1",
			ChatID:    "chat-1",
			Direction: timeline.DirectionOut,
			Type:      timeline.TypePhoto,
			Text:      "caption",
			CreatedAt: time.Now().UTC(),
		})
	})

	msg, err := client.SendMessage(context.Background(), "chat-1", SendRequestFromDraft(draft))
	require.NoError(t, err)
	require.Equal(t, "srv-1", msg.ID)
	require.Nil(t, received.InlineButtons, "buttons must be dropped on multi-attachment sends")
	require.Len(t, received.Attachments, 2)
	require.Equal(t, timeline.TypePhoto, received.Type)
}

func TestSendRequestCarriesNominalType(t *testing.T) {
	req := SendRequestFromDraft(timeline.Draft{
		Text:        "see photo",
		Attachments: []timeline.Attachment{{URL: "https://files/x.png", Mime: "image/png", Name: "x.png"}},
	})
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"photo"`)

	raw, err = json.Marshal(SendRequestFromDraft(timeline.Draft{Text: "hi"}))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"text"`)
}

func TestWithTimeout(t *testing.T) {
	c := New("http://localhost", "", WithTimeout(3*time.Second))
	require.Equal(t, 3*time.Second, c.http.Timeout)

	c = New("http://localhost", "", WithTimeout(0))
	require.Equal(t, defaultTimeout, c.http.Timeout)
}

func TestRequestFailureLogRedactsSecrets(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "upstream rejected token=supersecretvalue99")
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	client := New(srv.URL, "test-token", WithLogger(zerolog.New(&buf)))

	_, err := client.Messages(context.Background(), "chat-1", "", 0)
	require.Error(t, err)
	require.Contains(t, buf.String(), logging.RedactedValue)
	require.NotContains(t, buf.String(), "supersecretvalue99")
}

func TestStatusSentinels(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tc := range cases {
		client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		})
		_, err := client.Messages(context.Background(), "chat-1", "", 50)
		require.ErrorIs(t, err, tc.want, "status %d", tc.code)
	}
}

func TestUnexpectedStatusIsTransient(t *testing.T) {
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})
	_, err := client.Messages(context.Background(), "chat-1", "", 50)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnauthorized))
	require.Contains(t, err.Error(), "502")
}

func TestChatsPage(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]Chat, ChatPageLimit)
	for i := range items {
		ts := at.Add(-time.Duration(i) * time.Hour)
		items[i] = Chat{ID: fmt.Sprintf("c%02d", i), Status: StatusActive, LastMessageAt: &ts}
	}

	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chats", r.URL.Path)
		require.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
		writeJSON(t, w, items)
	})

	page, err := client.Chats(context.Background(), StatusActive, "", 0)
	require.NoError(t, err)
	require.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)
}

func TestUpdateNoteAndLifecycle(t *testing.T) {
	var paths []string
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/chats/chat-1/note":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "vip customer", body["note"])
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(t, w, Chat{ID: "chat-1", Status: StatusClosed})
		}
	})

	ctx := context.Background()
	require.NoError(t, client.UpdateNote(ctx, "chat-1", "vip customer"))
	chat, err := client.CloseChat(ctx, "chat-1")
	require.NoError(t, err)
	require.Equal(t, StatusClosed, chat.Status)
	_, err = client.EscalateChat(ctx, "chat-1")
	require.NoError(t, err)

	require.Equal(t, []string{
		"PATCH /api/chats/chat-1/note",
		"POST /api/chats/chat-1/close",
		"POST /api/chats/chat-1/escalate",
	}, paths)
}

func TestUpload(t *testing.T) {
	client := serveJSON(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/uploads", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "notes.txt", hdr.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "hello upload", string(data))
		writeJSON(t, w, timeline.Attachment{URL: "https://files/notes.txt"})
	})

	att, err := client.Upload(context.Background(), "notes.txt", "text/plain", strings.NewReader("hello upload"))
	require.NoError(t, err)
	require.Equal(t, "https://files/notes.txt", att.URL)
	require.Equal(t, "notes.txt", att.Name)
	require.Equal(t, "text/plain", att.Mime)
	require.EqualValues(t, len("hello upload"), att.Size)
}
