package timeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testMsg(id string, at time.Time) Message {
	return Message{
		ID:        id,
		ChatID:    "chat-1",
		Direction: DirectionIn,
		Type:      TypeText,
		Text:      "msg " + id,
		CreatedAt: at,
	}
}

func newTestBuffer(t *testing.T) *Buffer {
	t.Helper()
	return NewBuffer("chat-1", true, zerolog.Nop())
}

func TestBufferPrependPageDedupes(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	page1 := []Message{
		testMsg("m3", base.Add(3*time.Minute)),
		testMsg("m2", base.Add(2*time.Minute)),
		testMsg("m1", base.Add(1*time.Minute)),
	}
	require.Equal(t, 3, buf.PrependPage(page1))

	// Overlapping page: m1 repeats, m0 is new.
	page2 := []Message{
		testMsg("m1", base.Add(1*time.Minute)),
		testMsg("m0", base),
	}
	require.Equal(t, 1, buf.PrependPage(page2))
	require.Equal(t, 4, buf.Len())

	got := buf.Messages()
	require.Equal(t, "m0", got[0].ID)
	require.Equal(t, "m3", got[3].ID)
}

func TestBufferOrderingTotal(t *testing.T) {
	buf := newTestBuffer(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp, order must fall back to id.
	buf.ApplyNew(testMsg("b", at))
	buf.ApplyNew(testMsg("a", at))
	buf.ApplyNew(testMsg("c", at))

	got := buf.Messages()
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestBufferApplyNewIdempotent(t *testing.T) {
	buf := newTestBuffer(t)
	msg := testMsg("m1", time.Now().UTC())

	require.True(t, buf.ApplyNew(msg))
	require.False(t, buf.ApplyNew(msg))
	require.Equal(t, 1, buf.Len())
}

func TestBufferReconcileSuccess(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.PrependPage([]Message{testMsg("m1", base)})

	pending := testMsg("temp-1", base.Add(time.Minute))
	pending.Direction = DirectionOut
	buf.ApplyOptimistic(pending)
	require.Equal(t, 2, buf.Len())

	server := testMsg("srv-1", base.Add(time.Minute))
	server.Direction = DirectionOut
	server.ServerID = 901

	removed, present := buf.Reconcile("temp-1", &server)
	require.True(t, present)
	require.Equal(t, "temp-1", removed.ID)
	require.Equal(t, 2, buf.Len())

	got, ok := buf.Get("srv-1")
	require.True(t, ok)
	require.False(t, got.Pending)
	require.EqualValues(t, 901, got.ServerID)

	// Temp id still resolves through the canonical mapping.
	viaTemp, ok := buf.Get("temp-1")
	require.True(t, ok)
	require.Equal(t, "srv-1", viaTemp.ID)
}

func TestBufferReconcileFailureRollsBack(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.PrependPage([]Message{testMsg("m1", base)})

	pending := testMsg("temp-1", base.Add(time.Minute))
	pending.Direction = DirectionOut
	pending.Text = "draft text"
	buf.ApplyOptimistic(pending)

	removed, present := buf.Reconcile("temp-1", nil)
	require.True(t, present)
	require.Equal(t, "draft text", removed.Text)
	require.Equal(t, 1, buf.Len())
	_, ok := buf.Get("temp-1")
	require.False(t, ok)
}

func TestBufferLiveBeatsSendResponse(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pending := testMsg("temp-1", base)
	pending.Direction = DirectionOut
	pending.Text = "hello"
	buf.ApplyOptimistic(pending)

	// Live event for the same send arrives before the POST response.
	live := testMsg("srv-9", base.Add(200*time.Millisecond))
	live.Direction = DirectionOut
	live.Text = "hello"
	require.True(t, buf.ApplyNew(live))
	require.Equal(t, 1, buf.Len())

	got, ok := buf.Get("srv-9")
	require.True(t, ok)
	require.False(t, got.Pending)

	// The late POST response must not duplicate or disturb the entry.
	server := live
	removed, present := buf.Reconcile("temp-1", &server)
	require.False(t, present)
	require.Equal(t, "srv-9", removed.ID)
	require.Equal(t, 1, buf.Len())
}

func TestBufferReconcileDuplicateServerRecord(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pending := testMsg("temp-1", base)
	pending.Direction = DirectionOut
	pending.Text = "photo caption"
	pending.Attachments = []Attachment{{URL: "https://files/x.png", Mime: "image/png"}}
	buf.ApplyOptimistic(pending)

	// Live record that does not content-match (different attachment count),
	// so it lands as a separate entry.
	live := testMsg("srv-9", base.Add(time.Second))
	live.Direction = DirectionOut
	live.Text = "photo caption"
	require.True(t, buf.ApplyNew(live))
	require.Equal(t, 2, buf.Len())

	server := live
	removed, present := buf.Reconcile("temp-1", &server)
	require.True(t, present)
	require.Equal(t, "temp-1", removed.ID)
	require.Equal(t, 1, buf.Len())
}

func TestBufferApplyDeleteAndPatch(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.PrependPage([]Message{
		testMsg("m2", base.Add(time.Minute)),
		testMsg("m1", base),
	})

	require.False(t, buf.ApplyDelete("unknown"))
	require.True(t, buf.ApplyDelete("m1"))
	require.Equal(t, 1, buf.Len())

	patch := testMsg("m2", base.Add(time.Minute))
	patch.Text = "edited text"
	patch.IsEdited = true
	require.True(t, buf.ApplyPatch(patch))

	got, ok := buf.Get("m2")
	require.True(t, ok)
	require.True(t, got.IsEdited)
	require.Equal(t, "edited text", got.Text)
}

func TestBufferByServerID(t *testing.T) {
	buf := newTestBuffer(t)
	msg := testMsg("m1", time.Now().UTC())
	msg.ServerID = 42
	buf.ApplyNew(msg)

	got, ok := buf.ByServerID(42)
	require.True(t, ok)
	require.Equal(t, "m1", got.ID)

	_, ok = buf.ByServerID(0)
	require.False(t, ok)
	_, ok = buf.ByServerID(7)
	require.False(t, ok)
}

func TestBufferRepairLastWriteWins(t *testing.T) {
	buf := NewBuffer("chat-1", false, zerolog.Nop())
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Force a duplicate past the public API to exercise repair.
	buf.msgs = []Message{
		testMsg("m1", base),
		testMsg("m2", base.Add(time.Minute)),
		testMsg("m1", base.Add(2*time.Minute)),
	}
	buf.reindex()
	buf.validate("test")

	require.Equal(t, 2, buf.Len())
	got, ok := buf.Get("m1")
	require.True(t, ok)
	require.Equal(t, base.Add(2*time.Minute), got.CreatedAt)
}

func TestBufferLargeMergeStaysOrdered(t *testing.T) {
	buf := newTestBuffer(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Three newest-first pages of 50, oldest page last, like real pagination.
	for page := 2; page >= 0; page-- {
		items := make([]Message, 0, 50)
		for i := 49; i >= 0; i-- {
			n := page*50 + i
			items = append(items, testMsg(fmt.Sprintf("m%03d", n), base.Add(time.Duration(n)*time.Minute)))
		}
		require.Equal(t, 50, buf.PrependPage(items))
	}
	require.Equal(t, 150, buf.Len())

	got := buf.Messages()
	for i := 1; i < len(got); i++ {
		require.True(t, less(got[i-1], got[i]), "order broken at %d", i)
	}
}
