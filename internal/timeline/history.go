package timeline

// History tracks backward pagination state for one conversation: the opaque
// cursor for the next older page, whether more history exists, and whether a
// load is already in flight. The cursor only advances when a page is applied,
// so a failed load retries the same request.
type History struct {
	cursor      string
	hasMore     bool
	loadingMore bool
	initialized bool
}

// NewHistory returns pagination state before the first page has loaded.
func NewHistory() *History {
	return &History{hasMore: true}
}

// Cursor returns the cursor for the next request. Empty means "newest page".
func (h *History) Cursor() string {
	return h.cursor
}

// HasMore reports whether older history remains. True until the server
// returns a short page.
func (h *History) HasMore() bool {
	return h.hasMore
}

// Loading reports whether a page request is in flight.
func (h *History) Loading() bool {
	return h.loadingMore
}

// Initialized reports whether the first page has been applied.
func (h *History) Initialized() bool {
	return h.initialized
}

// Begin marks a load in flight. Returns false if a request should not be
// issued: one is already running, or the history is exhausted.
func (h *History) Begin() bool {
	if h.loadingMore || !h.hasMore {
		return false
	}
	h.loadingMore = true
	return true
}

// Apply records a successfully fetched page: the cursor advances to
// nextCursor and hasMore follows the server's signal.
func (h *History) Apply(nextCursor string, hasMore bool) {
	h.loadingMore = false
	h.initialized = true
	h.cursor = nextCursor
	h.hasMore = hasMore
}

// Fail clears the in-flight flag without touching the cursor. The next
// Begin retries the identical request.
func (h *History) Fail() {
	h.loadingMore = false
}
