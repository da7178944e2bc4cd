// Package session holds the state of one editing session and the commands
// that change it. The controller is independent of any terminal so the
// TUI, the file watcher and tests drive it through the same methods.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/preview"
	"github.com/zjrosen/polypad/internal/pubsub"
)

// ErrRunInFlight is returned by Run while a previous run is outstanding.
var ErrRunInFlight = errors.New("run already in flight")

// Relayouter is told whenever the editing surfaces' geometry changes.
type Relayouter interface {
	Invalidate(reason string)
}

// ChangeKind identifies what a published Change was caused by.
type ChangeKind string

const (
	ChangeMarkup   ChangeKind = "markup"
	ChangeStyle    ChangeKind = "style"
	ChangeScript   ChangeKind = "script"
	ChangeLanguage ChangeKind = "language"
	ChangeTab      ChangeKind = "tab"
	ChangeTheme    ChangeKind = "theme"
	ChangePreview  ChangeKind = "preview"
	ChangeOutput   ChangeKind = "output"
	ChangeRun      ChangeKind = "run"
)

// Change is the payload published after every state change.
type Change struct {
	Kind  ChangeKind
	State State
}

// Option configures a Controller.
type Option func(*Controller)

// WithRelayouter routes preview geometry changes to r.
func WithRelayouter(r Relayouter) Option {
	return func(c *Controller) { c.relayouter = r }
}

// WithLanguage sets the initial language. Unknown ids are ignored.
func WithLanguage(id catalog.LanguageID) Option {
	return func(c *Controller) {
		if opt, ok := catalog.Lookup(id); ok {
			c.state.Language = opt.ID
			c.state.Script = opt.Seed
		}
	}
}

// WithTheme sets the initial theme. Unknown themes are ignored.
func WithTheme(t Theme) Option {
	return func(c *Controller) {
		if t.Valid() {
			c.state.Theme = t
		}
	}
}

// WithMarkup replaces the default markup buffer.
func WithMarkup(s string) Option {
	return func(c *Controller) { c.state.Markup = s }
}

// WithStyle replaces the default style buffer.
func WithStyle(s string) Option {
	return func(c *Controller) { c.state.Style = s }
}

// Controller owns a session's state. All methods are safe for concurrent
// use.
type Controller struct {
	mu         sync.Mutex
	state      State
	exec       execution.Executor
	relayouter Relayouter
	broker     *pubsub.Broker[Change]

	// scriptRev counts script and language changes; dispatchedRev is the
	// value it had when the most recent run was dispatched.
	scriptRev     uint64
	dispatchedRev uint64
	dispatched    bool
}

// New creates a session with the default buffers, the default language
// and the dark theme.
func New(exec execution.Executor, opts ...Option) *Controller {
	if exec == nil {
		exec = execution.ExecutorFunc(func(context.Context, execution.Request) (execution.Response, error) {
			return execution.Response{}, &execution.TransportError{Err: errors.New("no execution service configured")}
		})
	}
	lang := catalog.Default()
	c := &Controller{
		exec:   exec,
		broker: pubsub.NewBroker[Change](pubsub.WithReplay()),
		state: State{
			ID:        uuid.NewString(),
			Markup:    DefaultMarkup,
			Style:     DefaultStyle,
			Script:    lang.Seed,
			Language:  lang.ID,
			Theme:     ThemeDark,
			ActiveTab: TabOutput,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Artifact = preview.Compose(c.state.Markup, c.state.Style)
	log.Debug(log.CatSession, "session created", "id", c.state.ID, "language", c.state.Language, "theme", c.state.Theme)
	return c
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.state.ID
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.OutputStale = c.dispatched && c.scriptRev != c.dispatchedRev
	return s
}

// Subscribe delivers a Change after every command. The latest change is
// replayed to new subscribers.
func (c *Controller) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return c.broker.Subscribe(ctx)
}

var _ pubsub.Subscriber[Change] = (*Controller)(nil)

// Close releases subscribers.
func (c *Controller) Close() {
	c.broker.Close()
}

// update applies fn under the lock and publishes the resulting state when
// fn reports a change.
func (c *Controller) update(kind ChangeKind, fn func(s *State) bool) bool {
	c.mu.Lock()
	changed := fn(&c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.broker.Publish(pubsub.UpdatedEvent, Change{Kind: kind, State: snap})
	}
	return changed
}

// SetMarkup replaces the markup buffer and recomposes the artifact.
func (c *Controller) SetMarkup(text string) {
	c.update(ChangeMarkup, func(s *State) bool {
		s.Markup = text
		s.Artifact = preview.Compose(s.Markup, s.Style)
		return true
	})
}

// SetStyle replaces the style buffer and recomposes the artifact.
func (c *Controller) SetStyle(text string) {
	c.update(ChangeStyle, func(s *State) bool {
		s.Style = text
		s.Artifact = preview.Compose(s.Markup, s.Style)
		return true
	})
}

// SetScript replaces the script buffer.
func (c *Controller) SetScript(text string) {
	c.update(ChangeScript, func(s *State) bool {
		s.Script = text
		c.scriptRev++
		return true
	})
}

// SelectLanguage switches the script language and reseeds the script
// buffer, discarding its edits. Unknown ids leave the state unchanged and
// return false.
func (c *Controller) SelectLanguage(id catalog.LanguageID) bool {
	opt, ok := catalog.Lookup(id)
	if !ok {
		log.Debug(log.CatSession, "language not found", "id", id)
		return false
	}
	c.update(ChangeLanguage, func(s *State) bool {
		s.Language = opt.ID
		s.Script = opt.Seed
		c.scriptRev++
		return true
	})
	log.Debug(log.CatSession, "language selected", "id", opt.ID)
	return true
}

// CycleLanguage selects the next language in display order.
func (c *Controller) CycleLanguage() catalog.LanguageID {
	next := catalog.Next(c.Snapshot().Language)
	c.SelectLanguage(next)
	return next
}

// SelectTab shows tab in the result pane. Unknown tabs return false.
func (c *Controller) SelectTab(tab Tab) bool {
	if !tab.Valid() {
		return false
	}
	c.update(ChangeTab, func(s *State) bool {
		if s.ActiveTab == tab {
			return false
		}
		s.ActiveTab = tab
		return true
	})
	return true
}

// SetTheme applies theme. Unknown themes return false.
func (c *Controller) SetTheme(theme Theme) bool {
	if !theme.Valid() {
		return false
	}
	c.update(ChangeTheme, func(s *State) bool {
		if s.Theme == theme {
			return false
		}
		s.Theme = theme
		return true
	})
	return true
}

// ToggleTheme flips between dark and light and returns the new theme.
func (c *Controller) ToggleTheme() Theme {
	var theme Theme
	c.update(ChangeTheme, func(s *State) bool {
		s.Theme = s.Theme.Toggle()
		theme = s.Theme
		return true
	})
	return theme
}

// SetPreviewExpanded expands or collapses the preview. A change in
// geometry schedules a relayout.
func (c *Controller) SetPreviewExpanded(expanded bool) {
	if c.update(ChangePreview, func(s *State) bool {
		if s.PreviewExpanded == expanded {
			return false
		}
		s.PreviewExpanded = expanded
		return true
	}) {
		c.relayout(expandReason(expanded))
	}
}

// TogglePreviewExpanded flips the preview size and returns the new value.
func (c *Controller) TogglePreviewExpanded() bool {
	var expanded bool
	c.update(ChangePreview, func(s *State) bool {
		s.PreviewExpanded = !s.PreviewExpanded
		expanded = s.PreviewExpanded
		return true
	})
	c.relayout(expandReason(expanded))
	return expanded
}

// ClearOutput empties the output pane.
func (c *Controller) ClearOutput() {
	c.update(ChangeOutput, func(s *State) bool {
		if s.Output == "" {
			return false
		}
		s.Output = ""
		return true
	})
}

func (c *Controller) relayout(reason string) {
	if c.relayouter != nil {
		c.relayouter.Invalidate(reason)
	}
}

func expandReason(expanded bool) string {
	if expanded {
		return "preview expanded"
	}
	return "preview collapsed"
}
