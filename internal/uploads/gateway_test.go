package uploads

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tgdesk/tgdesk/internal/timeline"
)

// stubUploader answers uploads from a map; per-file gates let tests control
// completion order.
type stubUploader struct {
	mu    sync.Mutex
	fail  map[string]error
	gates map[string]chan struct{}
	calls []string
}

func (s *stubUploader) Upload(ctx context.Context, name, mime string, r io.Reader) (timeline.Attachment, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	gate := s.gates[name]
	err := s.fail[name]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return timeline.Attachment{}, ctx.Err()
		}
	}
	if err != nil {
		return timeline.Attachment{}, err
	}
	data, rerr := io.ReadAll(r)
	if rerr != nil {
		return timeline.Attachment{}, rerr
	}
	return timeline.Attachment{
		URL:  "https://files/" + name,
		Name: name,
		Mime: mime,
		Size: int64(len(data)),
	}, nil
}

func collect(t *testing.T, results <-chan Result) []Result {
	t.Helper()
	var out []Result
	timeout := time.After(3 * time.Second)
	for {
		select {
		case res, ok := <-results:
			if !ok {
				return out
			}
			out = append(out, res)
		case <-timeout:
			t.Fatal("results channel never closed")
		}
	}
}

func pasted(name, mime, content string) File {
	return File{Name: name, Mime: mime, Size: int64(len(content)), Data: []byte(content)}
}

func TestGatewayUploadsConcurrently(t *testing.T) {
	stub := &stubUploader{}
	g := New(stub, zerolog.Nop())

	accepted, results := g.Start(context.Background(), []File{
		pasted("a.png", "image/png", "aaa"),
		pasted("b.pdf", "application/pdf", "bbbb"),
	})
	require.Len(t, accepted, 2)

	out := collect(t, results)
	require.Len(t, out, 2)
	for _, res := range out {
		require.NoError(t, res.Err)
		require.Equal(t, "https://files/"+res.File.Name, res.Attachment.URL)
	}
}

func TestGatewayDeduplicatesByNameSizeMime(t *testing.T) {
	stub := &stubUploader{}
	g := New(stub, zerolog.Nop())

	first := pasted("shot.png", "image/png", "xxxx")
	accepted, results := g.Start(context.Background(), []File{first})
	require.Len(t, accepted, 1)
	collect(t, results)

	// Same paste again: dropped without a network call.
	accepted, results = g.Start(context.Background(), []File{first})
	require.Empty(t, accepted)
	require.Empty(t, collect(t, results))
	require.Len(t, stub.calls, 1)

	// Same name but different size is a different file.
	other := pasted("shot.png", "image/png", "yyyyyyyy")
	accepted, results = g.Start(context.Background(), []File{other})
	require.Len(t, accepted, 1)
	collect(t, results)
	require.Len(t, stub.calls, 2)
}

func TestGatewayDeduplicatesWithinBatch(t *testing.T) {
	stub := &stubUploader{}
	g := New(stub, zerolog.Nop())

	f := pasted("dup.png", "image/png", "zz")
	accepted, results := g.Start(context.Background(), []File{f, f})
	require.Len(t, accepted, 1)
	require.Len(t, collect(t, results), 1)
}

func TestGatewayFailureDropsOnlyThatFile(t *testing.T) {
	boom := errors.New("disk full")
	stub := &stubUploader{fail: map[string]error{"bad.bin": boom}}
	g := New(stub, zerolog.Nop())

	accepted, results := g.Start(context.Background(), []File{
		pasted("good.png", "image/png", "ok"),
		pasted("bad.bin", "application/octet-stream", "nope"),
	})
	require.Len(t, accepted, 2)

	out := collect(t, results)
	require.Len(t, out, 2)
	var failed, succeeded int
	for _, res := range out {
		if res.Err != nil {
			failed++
			require.ErrorIs(t, res.Err, boom)
		} else {
			succeeded++
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 1, succeeded)

	// Failed file is untracked and may be retried.
	require.False(t, g.Tracked(pasted("bad.bin", "application/octet-stream", "nope")))
	require.True(t, g.Tracked(pasted("good.png", "image/png", "ok")))
}

func TestGatewayResultsArriveInCompletionOrder(t *testing.T) {
	slow := make(chan struct{})
	stub := &stubUploader{gates: map[string]chan struct{}{"slow.mov": slow}}
	g := New(stub, zerolog.Nop())

	_, results := g.Start(context.Background(), []File{
		pasted("slow.mov", "video/quicktime", "mmmm"),
		pasted("fast.png", "image/png", "pp"),
	})

	select {
	case res := <-results:
		require.Equal(t, "fast.png", res.File.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("fast upload did not finish first")
	}

	close(slow)
	res, ok := <-results
	require.True(t, ok)
	require.Equal(t, "slow.mov", res.File.Name)
}

func TestGatewayForget(t *testing.T) {
	stub := &stubUploader{}
	g := New(stub, zerolog.Nop())

	f := pasted("a.png", "image/png", "aa")
	_, results := g.Start(context.Background(), []File{f})
	collect(t, results)
	require.True(t, g.Tracked(f))

	g.Forget(f)
	require.False(t, g.Tracked(f))

	g2 := pasted("b.png", "image/png", "bb")
	g.Start(context.Background(), []File{g2})
	g.ForgetAll()
	require.False(t, g.Tracked(g2))
}
