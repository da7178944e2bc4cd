// Package layout coordinates deferred relayout of the editing surfaces.
//
// Editing widgets do not resize themselves continuously, so any change to
// their on-screen geometry must be pushed to them explicitly. The
// Coordinator coalesces bursts of geometry changes into a single relayout
// pass that runs once the visual transition has settled.
package layout

import (
	"sync"
	"time"

	"github.com/zjrosen/polypad/internal/log"
)

const (
	// DefaultTransition is the duration of the geometry transition that a
	// relayout follows (preview expand/collapse).
	DefaultTransition = 300 * time.Millisecond

	// DefaultSettleDelay must be at least DefaultTransition.
	DefaultSettleDelay = 350 * time.Millisecond
)

// Surface is a mounted editing widget. Layout recomputes its geometry.
type Surface interface {
	Layout()
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func()

// Layout calls f.
func (f SurfaceFunc) Layout() { f() }

// SurfaceID names one of the editing surfaces.
type SurfaceID string

const (
	Markup SurfaceID = "markup"
	Style  SurfaceID = "style"
	Script SurfaceID = "script"
)

// State is the coordinator's scheduling state.
type State int

const (
	Settled State = iota
	Pending
)

func (s State) String() string {
	switch s {
	case Settled:
		return "settled"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Clock schedules deferred callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// RealClock schedules with time.AfterFunc.
type RealClock struct{}

// AfterFunc calls f on its own goroutine after d.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Pass describes one executed relayout.
type Pass struct {
	Seq      uint64
	Reason   string
	Surfaces []SurfaceID
}

// Config configures a Coordinator.
type Config struct {
	// SettleDelay defaults to DefaultSettleDelay when zero.
	SettleDelay time.Duration

	// Clock defaults to RealClock when nil.
	Clock Clock

	// OnRelayout, if set, is called after each pass.
	OnRelayout func(Pass)
}

// Coordinator owns the surface handles and the single pending relayout.
type Coordinator struct {
	mu         sync.Mutex
	clock      Clock
	delay      time.Duration
	onRelayout func(Pass)

	order    []SurfaceID
	surfaces map[SurfaceID]Surface

	timer  Timer
	gen    uint64
	reason string
	passes uint64
	closed bool
}

// NewCoordinator creates a settled coordinator with no surfaces.
func NewCoordinator(cfg Config) *Coordinator {
	delay := cfg.SettleDelay
	if delay <= 0 {
		delay = DefaultSettleDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Coordinator{
		clock:      clock,
		delay:      delay,
		onRelayout: cfg.OnRelayout,
		surfaces:   make(map[SurfaceID]Surface),
	}
}

// Mount registers the handle for id, replacing any previous one. A nil
// handle is recorded as unavailable.
func (c *Coordinator) Mount(id SurfaceID, s Surface) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.surfaces[id]; !known {
		c.order = append(c.order, id)
	}
	c.surfaces[id] = s
	log.Debug(log.CatLayout, "surface mounted", "surface", id, "available", s != nil)
}

// Unmount marks the handle for id unavailable. Later passes skip it.
func (c *Coordinator) Unmount(id SurfaceID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.surfaces[id]; known {
		c.surfaces[id] = nil
		log.Debug(log.CatLayout, "surface unmounted", "surface", id)
	}
}

// Available reports whether id currently has a mounted handle.
func (c *Coordinator) Available(id SurfaceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfaces[id] != nil
}

// Invalidate records a geometry change and (re)arms the settle timer. A
// relayout already pending is discarded in favour of this one.
func (c *Coordinator) Invalidate(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.reason = reason
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
	log.Debug(log.CatLayout, "relayout armed", "reason", reason, "delay", c.delay, "gen", gen)
}

// fire runs the pass armed as generation gen. A timer that was superseded
// after it had already fired finds a newer generation and does nothing.
func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.passes++
	pass := Pass{Seq: c.passes, Reason: c.reason}
	targets := make([]Surface, 0, len(c.order))
	for _, id := range c.order {
		if s := c.surfaces[id]; s != nil {
			targets = append(targets, s)
			pass.Surfaces = append(pass.Surfaces, id)
		}
	}
	onRelayout := c.onRelayout
	c.mu.Unlock()

	for _, s := range targets {
		s.Layout()
	}
	log.Debug(log.CatLayout, "relayout pass", "seq", pass.Seq, "reason", pass.Reason, "surfaces", len(pass.Surfaces))
	if onRelayout != nil {
		onRelayout(pass)
	}
}

// State reports whether a relayout is pending.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		return Pending
	}
	return Settled
}

// Passes returns how many relayout passes have run.
func (c *Coordinator) Passes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

// SettleDelay returns the configured delay.
func (c *Coordinator) SettleDelay() time.Duration {
	return c.delay
}

// Close cancels any pending relayout and ignores further invalidations.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.closed = true
}
