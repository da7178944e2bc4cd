package layout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/polypad/internal/layout"
	"github.com/zjrosen/polypad/internal/layout/layouttest"
)

type countingSurface struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSurface) Layout() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingSurface) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newCoordinator(t *testing.T) (*layout.Coordinator, *layouttest.Clock, map[layout.SurfaceID]*countingSurface) {
	t.Helper()
	clock := layouttest.NewClock()
	c := layout.NewCoordinator(layout.Config{Clock: clock})
	t.Cleanup(c.Close)

	surfaces := map[layout.SurfaceID]*countingSurface{}
	for _, id := range []layout.SurfaceID{layout.Markup, layout.Style, layout.Script} {
		s := &countingSurface{}
		surfaces[id] = s
		c.Mount(id, s)
	}
	return c, clock, surfaces
}

func TestCoordinator_RunsAfterSettleDelay(t *testing.T) {
	c, clock, surfaces := newCoordinator(t)

	c.Invalidate("preview expanded")
	require.Equal(t, layout.Pending, c.State())

	clock.Advance(layout.DefaultSettleDelay - time.Millisecond)
	require.Equal(t, uint64(0), c.Passes())

	clock.Advance(time.Millisecond)
	require.Equal(t, uint64(1), c.Passes())
	require.Equal(t, layout.Settled, c.State())
	for id, s := range surfaces {
		require.Equal(t, 1, s.Calls(), "surface %s", id)
	}
}

func TestCoordinator_CoalescesRapidToggles(t *testing.T) {
	c, clock, surfaces := newCoordinator(t)

	c.Invalidate("expand")
	clock.Advance(100 * time.Millisecond)
	c.Invalidate("collapse")

	clock.Advance(349 * time.Millisecond)
	require.Equal(t, uint64(0), c.Passes())

	clock.Advance(time.Millisecond)
	require.Equal(t, uint64(1), c.Passes())

	clock.Advance(5 * time.Second)
	require.Equal(t, uint64(1), c.Passes())
	require.Equal(t, 1, surfaces[layout.Markup].Calls())
}

func TestCoordinator_SkipsUnavailableSurfaces(t *testing.T) {
	c, clock, surfaces := newCoordinator(t)

	var passes []layout.Pass
	c2 := layout.NewCoordinator(layout.Config{
		Clock:      clock,
		OnRelayout: func(p layout.Pass) { passes = append(passes, p) },
	})
	t.Cleanup(c2.Close)
	c2.Mount(layout.Markup, surfaces[layout.Markup])
	c2.Mount(layout.Style, nil)
	c2.Mount(layout.Script, surfaces[layout.Script])
	c2.Unmount(layout.Script)

	require.True(t, c2.Available(layout.Markup))
	require.False(t, c2.Available(layout.Style))
	require.False(t, c2.Available(layout.Script))

	c2.Invalidate("collapse")
	clock.Advance(layout.DefaultSettleDelay)

	require.Len(t, passes, 1)
	require.Equal(t, []layout.SurfaceID{layout.Markup}, passes[0].Surfaces)
	require.Equal(t, "collapse", passes[0].Reason)
	require.Equal(t, 1, surfaces[layout.Markup].Calls())
	require.Equal(t, 0, surfaces[layout.Script].Calls())
	require.Equal(t, uint64(0), c.Passes())
}

func TestCoordinator_CloseCancelsPending(t *testing.T) {
	c, clock, surfaces := newCoordinator(t)

	c.Invalidate("expand")
	c.Close()
	clock.Advance(time.Second)
	c.Invalidate("after close")
	clock.Advance(time.Second)

	require.Equal(t, uint64(0), c.Passes())
	require.Equal(t, 0, surfaces[layout.Style].Calls())
	require.Equal(t, 0, clock.Pending())
}

func TestCoordinator_DefaultsApplied(t *testing.T) {
	c := layout.NewCoordinator(layout.Config{})
	defer c.Close()
	require.Equal(t, layout.DefaultSettleDelay, c.SettleDelay())
	require.GreaterOrEqual(t, layout.DefaultSettleDelay, layout.DefaultTransition)
}

func TestCoordinator_RealClock(t *testing.T) {
	done := make(chan layout.Pass, 1)
	c := layout.NewCoordinator(layout.Config{
		SettleDelay: 10 * time.Millisecond,
		OnRelayout:  func(p layout.Pass) { done <- p },
	})
	defer c.Close()
	c.Mount(layout.Markup, layout.SurfaceFunc(func() {}))

	c.Invalidate("real")
	select {
	case p := <-done:
		require.Equal(t, uint64(1), p.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("relayout did not run")
	}
}

func TestState_String(t *testing.T) {
	require.Equal(t, "settled", layout.Settled.String())
	require.Equal(t, "pending", layout.Pending.String())
	require.Equal(t, "unknown", layout.State(9).String())
}

// Any burst of invalidations closer together than the settle delay yields
// exactly one pass, once the delay has elapsed after the last of them.
func TestCoordinator_BurstProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := layouttest.NewClock()
		c := layout.NewCoordinator(layout.Config{Clock: clock})
		defer c.Close()
		s := &countingSurface{}
		c.Mount(layout.Script, s)

		gaps := rapid.SliceOfN(rapid.IntRange(0, 349), 1, 20).Draw(rt, "gaps")
		c.Invalidate("burst")
		for _, g := range gaps {
			clock.Advance(time.Duration(g) * time.Millisecond)
			c.Invalidate("burst")
		}
		if c.Passes() != 0 {
			rt.Fatalf("pass ran mid-burst")
		}
		clock.Advance(layout.DefaultSettleDelay)
		if c.Passes() != 1 || s.Calls() != 1 {
			rt.Fatalf("want one pass, got passes=%d calls=%d", c.Passes(), s.Calls())
		}
	})
}
