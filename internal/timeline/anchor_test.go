package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	at time.Time
}

func (c *fakeClock) now() time.Time {
	return c.at
}

func (c *fakeClock) advance(d time.Duration) {
	c.at = c.at.Add(d)
}

func newTestAnchor() (*Anchor, *fakeClock) {
	clock := &fakeClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewAnchor(clock.now), clock
}

func TestAnchorInitialLoadSettles(t *testing.T) {
	a, clock := newTestAnchor()

	plan := a.InitialLoad()
	require.Equal(t, PlanFollowInstant, plan.Kind)
	require.Equal(t, InitialSettling, a.State())

	// Scroll noise during settling does not break the pin.
	a.OnUserScroll(500)
	require.Equal(t, InitialSettling, a.State())
	require.True(t, a.Sticky())

	// Back at the bottom when the window expires: stay pinned.
	a.OnUserScroll(0)
	clock.advance(SettleWindow + time.Millisecond)
	require.Equal(t, StickyBottom, a.State())
}

func TestAnchorScrollAwayDuringSettlingEndsFree(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()

	// Reading old context right after the load: the pin holds for the
	// window, but expiry must not yank the reader back down.
	a.OnUserScroll(500)
	require.True(t, a.Sticky())

	clock.advance(SettleWindow + time.Millisecond)
	require.Equal(t, Free, a.State())
	require.Equal(t, PlanNone, a.OnAppend(false).Kind)
}

func TestAnchorAppendDuringSettlingExtendsWindow(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()

	clock.advance(SettleWindow - 100*time.Millisecond)
	plan := a.OnAppend(false)
	require.Equal(t, PlanFollowInstant, plan.Kind)

	// The append re-armed the window, so it has not expired yet.
	clock.advance(200 * time.Millisecond)
	require.Equal(t, InitialSettling, a.State())
}

func TestAnchorStickinessFollowsScrollPosition(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()
	clock.advance(SettleWindow + time.Second)

	a.OnUserScroll(BottomThresholdRows + 1)
	require.Equal(t, Free, a.State())
	require.Equal(t, PlanNone, a.OnAppend(false).Kind)

	a.OnUserScroll(BottomThresholdRows)
	require.Equal(t, StickyBottom, a.State())
	require.Equal(t, PlanFollowSmooth, a.OnAppend(false).Kind)
	require.Equal(t, PlanFollowInstant, a.OnAppend(true).Kind)
}

func TestAnchorPrependHoldsVisualPosition(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()
	clock.advance(SettleWindow + time.Second)
	a.OnUserScroll(200) // reading old history

	a.BeforePrepend(ContentRows(100))
	plan := a.AfterPrepend(ContentRows(150))
	require.Equal(t, PlanAdjust, plan.Kind)
	require.Equal(t, ContentRows(50), plan.Delta)
	require.Equal(t, PrependHold, a.State())

	// The correction fires one synthetic scroll event; it must not flip the
	// reader back to sticky even though the raw numbers might say bottom.
	a.OnUserScroll(0)
	require.Equal(t, Free, a.State())

	// A real scroll afterwards behaves normally.
	a.OnUserScroll(1)
	require.Equal(t, StickyBottom, a.State())
}

func TestAnchorPrependWithNoGrowthIsNoop(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()
	clock.advance(SettleWindow + time.Second)
	a.OnUserScroll(200)

	a.BeforePrepend(ContentRows(100))
	plan := a.AfterPrepend(ContentRows(100))
	require.Equal(t, PlanNone, plan.Kind)
	require.Equal(t, Free, a.State())
}

func TestAnchorJumpToBottom(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()
	clock.advance(SettleWindow + time.Second)
	a.OnUserScroll(300)
	require.Equal(t, Free, a.State())

	plan := a.JumpToBottom()
	require.Equal(t, PlanFollowSmooth, plan.Kind)
	require.Equal(t, StickyBottom, a.State())
}

func TestAnchorResetForConversationSwitch(t *testing.T) {
	a, clock := newTestAnchor()
	a.InitialLoad()
	clock.advance(time.Second)
	a.OnUserScroll(300)

	a.Reset()
	require.Equal(t, StickyBottom, a.State())
	require.True(t, a.Sticky())
}
