// Package uploads moves composer attachments to the backend: one request
// per file, concurrent, completion-ordered results, duplicate selections
// filtered before any network traffic.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tgdesk/tgdesk/internal/timeline"
)

// File is a local selection or paste waiting to be uploaded. Either Path or
// Data is set.
type File struct {
	Name string
	Mime string
	Size int64
	Path string
	Data []byte
}

// Key identifies a file for duplicate detection. Two selections with the
// same name, size, and mime are the same file as far as the composer is
// concerned.
type Key struct {
	Name string
	Size int64
	Mime string
}

// Key returns the dedup identity.
func (f File) Key() Key {
	return Key{Name: f.Name, Size: f.Size, Mime: f.Mime}
}

// Result is one finished upload. Err set means the file was dropped; the
// siblings are unaffected.
type Result struct {
	File       File
	Attachment timeline.Attachment
	Err        error
}

// Uploader is the transport the gateway posts through. *api.Client
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, name, mime string, r io.Reader) (timeline.Attachment, error)
}

// Gateway uploads files concurrently and tracks which files the composer
// already holds so repeated pastes are ignored.
type Gateway struct {
	up  Uploader
	log zerolog.Logger

	mu      sync.Mutex
	tracked map[Key]struct{}
}

// New creates a gateway over the given transport.
func New(up Uploader, log zerolog.Logger) *Gateway {
	return &Gateway{
		up:      up,
		log:     log,
		tracked: make(map[Key]struct{}),
	}
}

// Start filters out files already tracked, begins uploading the rest
// concurrently, and returns the accepted files plus a channel that yields
// one Result per accepted file in completion order, then closes. A failed
// file is untracked so it can be retried.
func (g *Gateway) Start(ctx context.Context, files []File) ([]File, <-chan Result) {
	accepted := g.claim(files)

	results := make(chan Result, len(accepted))
	var wg sync.WaitGroup
	for _, f := range accepted {
		wg.Add(1)
		go func(f File) {
			defer wg.Done()
			att, err := g.uploadOne(ctx, f)
			if err != nil {
				g.log.Warn().Str("file", f.Name).Err(err).Msg("upload failed")
				g.Forget(f)
			}
			results <- Result{File: f, Attachment: att, Err: err}
		}(f)
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return accepted, results
}

// Forget releases a file's dedup slot, after the composer removes the
// attachment or the upload fails.
func (g *Gateway) Forget(f File) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tracked, f.Key())
}

// ForgetAll clears all dedup state, for conversation switches.
func (g *Gateway) ForgetAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracked = make(map[Key]struct{})
}

// Tracked reports whether a file is already attached or in flight.
func (g *Gateway) Tracked(f File) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.tracked[f.Key()]
	return ok
}

// claim marks new files tracked and returns them; duplicates (against
// tracked state or within the batch itself) are dropped.
func (g *Gateway) claim(files []File) []File {
	g.mu.Lock()
	defer g.mu.Unlock()
	accepted := make([]File, 0, len(files))
	for _, f := range files {
		k := f.Key()
		if _, dup := g.tracked[k]; dup {
			g.log.Debug().Str("file", f.Name).Msg("duplicate selection ignored")
			continue
		}
		g.tracked[k] = struct{}{}
		accepted = append(accepted, f)
	}
	return accepted
}

func (g *Gateway) uploadOne(ctx context.Context, f File) (timeline.Attachment, error) {
	var rd io.Reader
	if f.Data != nil {
		rd = bytes.NewReader(f.Data)
	} else {
		file, err := os.Open(f.Path)
		if err != nil {
			return timeline.Attachment{}, fmt.Errorf("uploads: open %s: %w", f.Path, err)
		}
		defer file.Close()
		rd = file
	}
	att, err := g.up.Upload(ctx, f.Name, f.Mime, rd)
	if err != nil {
		return timeline.Attachment{}, err
	}
	return att, nil
}
