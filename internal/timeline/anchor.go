package timeline

import "time"

// Anchor tuning, in row units and wall time.
const (
	// BottomThresholdRows is how close to the newest end the reader may be
	// and still count as anchored to the bottom.
	BottomThresholdRows = 3
	// SettleWindow is how long after the first page loads that layout is
	// still shifting and the view keeps forcing itself to the bottom.
	SettleWindow = 2 * time.Second
)

// AnchorState is the scroll anchor mode for one conversation view.
type AnchorState int

const (
	// StickyBottom follows new messages as they arrive.
	StickyBottom AnchorState = iota
	// Free leaves the reader where they scrolled; new messages do not move
	// the view.
	Free
	// InitialSettling is the window right after the first page renders,
	// during which every layout change re-pins the bottom instantly.
	InitialSettling
	// PrependHold is active right after a history prepend correction, until
	// the synthetic scroll event it causes has been consumed.
	PrependHold
)

func (s AnchorState) String() string {
	switch s {
	case StickyBottom:
		return "sticky-bottom"
	case Free:
		return "free"
	case InitialSettling:
		return "initial-settling"
	case PrependHold:
		return "prepend-hold"
	default:
		return "unknown"
	}
}

// PlanKind tells the view what scroll motion to perform.
type PlanKind int

const (
	PlanNone PlanKind = iota
	// PlanFollowInstant jumps to the bottom with no animation.
	PlanFollowInstant
	// PlanFollowSmooth animates to the bottom.
	PlanFollowSmooth
	// PlanAdjust shifts the offset by Delta rows to hold the visual
	// position across a prepend.
	PlanAdjust
)

// ScrollPlan is the outcome of an anchor decision.
type ScrollPlan struct {
	Kind  PlanKind
	Delta int
}

// Anchor decides how the viewport reacts to appends, prepends, and user
// scrolling. The clock is injected so tests control the settling window.
type Anchor struct {
	state       AnchorState
	held        AnchorState
	now         func() time.Time
	settleUntil time.Time
	settleDist  int
	prependBase int
}

// NewAnchor returns an anchor pinned to the bottom. A nil clock uses
// time.Now.
func NewAnchor(now func() time.Time) *Anchor {
	if now == nil {
		now = time.Now
	}
	return &Anchor{state: StickyBottom, now: now}
}

// State returns the current mode after expiring a stale settling window.
func (a *Anchor) State() AnchorState {
	a.expireSettling()
	return a.state
}

// Sticky reports whether new messages should move the view.
func (a *Anchor) Sticky() bool {
	s := a.State()
	return s == StickyBottom || s == InitialSettling
}

// InitialLoad marks the first page as rendered: the view jumps to the
// bottom instantly and stays pinned for the settling window.
func (a *Anchor) InitialLoad() ScrollPlan {
	a.state = InitialSettling
	a.settleUntil = a.now().Add(SettleWindow)
	a.settleDist = 0
	return ScrollPlan{Kind: PlanFollowInstant}
}

// OnUserScroll updates stickiness from the reader's position, given the
// distance in rows between the viewport's lower edge and the newest end.
// During settling the state does not flip, but the last reported position
// decides where the window expires: still at the bottom stays sticky,
// scrolled away lands in Free. The first event after a prepend correction
// is the correction itself.
func (a *Anchor) OnUserScroll(distanceFromBottom int) {
	a.expireSettling()
	switch a.state {
	case InitialSettling:
		a.settleDist = distanceFromBottom
		return
	case PrependHold:
		a.state = a.held
		return
	}
	if distanceFromBottom <= BottomThresholdRows {
		a.state = StickyBottom
	} else {
		a.state = Free
	}
}

// OnAppend decides the reaction to a message arriving at the newest end.
// own marks messages this operator just sent, which always jump instantly.
func (a *Anchor) OnAppend(own bool) ScrollPlan {
	a.expireSettling()
	switch a.state {
	case InitialSettling:
		a.settleUntil = a.now().Add(SettleWindow)
		a.settleDist = 0
		return ScrollPlan{Kind: PlanFollowInstant}
	case StickyBottom:
		if own {
			return ScrollPlan{Kind: PlanFollowInstant}
		}
		return ScrollPlan{Kind: PlanFollowSmooth}
	default:
		return ScrollPlan{Kind: PlanNone}
	}
}

// BeforePrepend snapshots the content extent ahead of merging older history.
func (a *Anchor) BeforePrepend(contentRows int) {
	a.prependBase = contentRows
}

// AfterPrepend returns the offset correction that keeps the same message
// under the reader's eyes, and arms PrependHold so the synthetic scroll
// event the correction causes does not flip stickiness.
func (a *Anchor) AfterPrepend(contentRows int) ScrollPlan {
	a.expireSettling()
	delta := contentRows - a.prependBase
	if delta <= 0 {
		return ScrollPlan{Kind: PlanNone}
	}
	if a.state == InitialSettling {
		// Settling already re-pins the bottom; no hold needed.
		return ScrollPlan{Kind: PlanAdjust, Delta: delta}
	}
	a.held = a.state
	a.state = PrependHold
	return ScrollPlan{Kind: PlanAdjust, Delta: delta}
}

// JumpToBottom is the explicit "scroll to newest" affordance.
func (a *Anchor) JumpToBottom() ScrollPlan {
	a.expireSettling()
	a.state = StickyBottom
	return ScrollPlan{Kind: PlanFollowSmooth}
}

// Reset returns the anchor to its initial pinned state, for conversation
// switches.
func (a *Anchor) Reset() {
	a.state = StickyBottom
	a.settleUntil = time.Time{}
	a.settleDist = 0
	a.prependBase = 0
}

func (a *Anchor) expireSettling() {
	if a.state == InitialSettling && a.now().After(a.settleUntil) {
		if a.settleDist <= BottomThresholdRows {
			a.state = StickyBottom
		} else {
			a.state = Free
		}
	}
}
