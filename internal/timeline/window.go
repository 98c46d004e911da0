package timeline

// Virtualization constants. Row heights are a fixed heuristic: the window
// math never measures rendered entries, it assumes every entry occupies
// EstimateRows terminal rows. The overscan absorbs the estimate error for
// entries near the viewport edges.
const (
	// EstimateRows is the assumed height of one rendered message.
	EstimateRows = 4
	// Overscan is how many entries are rendered beyond each viewport edge.
	Overscan = 12
	// VirtualizeThreshold is the buffer length above which windowing
	// activates. Below it every entry renders.
	VirtualizeThreshold = 200
)

// Window describes which slice of the buffer to render and how much blank
// padding stands in for the unrendered remainder, all in row units.
type Window struct {
	Start         int
	End           int // exclusive
	PaddingTop    int
	PaddingBottom int
	Virtual       bool
}

// ComputeWindow derives the render window for n entries given the current
// scroll offset and viewport height in rows. When n is at or below the
// threshold the full range is returned with zero padding.
//
// The padding identity always holds:
//
//	PaddingTop + (End-Start)*EstimateRows + PaddingBottom == n*EstimateRows
//
// so the scrollable extent never changes when the window shifts.
func ComputeWindow(n, scroll, viewport int) Window {
	if n <= VirtualizeThreshold {
		return Window{Start: 0, End: n}
	}
	if scroll < 0 {
		scroll = 0
	}
	start := clampInt(scroll/EstimateRows-Overscan, 0, n)
	end := clampInt(ceilDiv(scroll+viewport, EstimateRows)+Overscan, 0, n)
	if end < start {
		end = start
	}
	return Window{
		Start:         start,
		End:           end,
		PaddingTop:    start * EstimateRows,
		PaddingBottom: (n - end) * EstimateRows,
		Virtual:       true,
	}
}

// ContentRows returns the total estimated scrollable height for n entries.
func ContentRows(n int) int {
	return n * EstimateRows
}

// MaxScroll returns the largest valid scroll offset for n entries in a
// viewport of the given height.
func MaxScroll(n, viewport int) int {
	return maxInt(ContentRows(n)-viewport, 0)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
