// Package app contains the root application model.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/config"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/keys"
	"github.com/zjrosen/polypad/internal/layout"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/pubsub"
	"github.com/zjrosen/polypad/internal/session"
	"github.com/zjrosen/polypad/internal/ui/editor"
	"github.com/zjrosen/polypad/internal/ui/output"
	uipreview "github.com/zjrosen/polypad/internal/ui/preview"
	"github.com/zjrosen/polypad/internal/ui/styles"
	"github.com/zjrosen/polypad/internal/ui/toaster"
	"github.com/zjrosen/polypad/internal/watcher"
)

// Zone ids for mouse hit testing.
const (
	zoneRun        = "run"
	zoneTabOutput  = "tab-output"
	zoneTabPreview = "tab-preview"
	zoneClear      = "clear"
	zoneResult     = "result"
)

const headerHeight = 1

// Options configures New.
type Options struct {
	// Executor runs scripts. Nil makes every run fail with a transport
	// error.
	Executor execution.Executor
	Config   config.Config

	// ConfigPath receives theme toggles. Empty disables saving.
	ConfigPath string

	// Clock drives the relayout timer. Nil uses the real clock.
	Clock layout.Clock
}

type relayoutMsg struct{ pass layout.Pass }

type runFinishedMsg struct {
	outcome session.Outcome
	err     error
}

type themeSavedMsg struct {
	theme session.Theme
	err   error
}

// Model is the root application state.
type Model struct {
	ctrl  *session.Controller
	coord *layout.Coordinator
	keys  keys.KeyMap
	help  help.Model

	panes   []*editor.Pane
	focus   int
	output  output.Model
	preview viewport.Model
	toaster toaster.Model

	renderer    *uipreview.Renderer
	renderedFor string

	state   session.State
	width   int
	height  int
	resultH int

	ctx       context.Context
	cancel    context.CancelFunc
	changes   *pubsub.ContinuousListener[session.Change]
	relayouts chan layout.Pass

	watcher *watcher.Watcher
	watched *pubsub.ContinuousListener[watcher.Change]

	configPath string
}

// New builds the session, mounts the editing panes on the layout
// coordinator and, when configured, starts watching the seed files.
func New(opts Options) (Model, error) {
	cfg := opts.Config
	ctx, cancel := context.WithCancel(context.Background())

	relayouts := make(chan layout.Pass, 1)
	coord := layout.NewCoordinator(layout.Config{
		SettleDelay: cfg.Layout.SettleDelay,
		Clock:       opts.Clock,
		OnRelayout: func(p layout.Pass) {
			select {
			case relayouts <- p:
			default:
				// A queued pass re-measures every stale pane.
			}
		},
	})

	sessOpts := []session.Option{session.WithRelayouter(coord)}
	if cfg.Editor.Language != "" {
		sessOpts = append(sessOpts, session.WithLanguage(catalog.LanguageID(strings.ToLower(cfg.Editor.Language))))
	}
	if cfg.Editor.Theme != "" {
		sessOpts = append(sessOpts, session.WithTheme(session.Theme(cfg.Editor.Theme)))
	}

	var (
		w      *watcher.Watcher
		loaded []watcher.Change
	)
	if cfg.Watch.Enabled() {
		var err error
		w, err = watcher.New(watcher.Config{
			Files: map[watcher.Target]string{
				watcher.Markup: cfg.Watch.Markup,
				watcher.Style:  cfg.Watch.Style,
				watcher.Script: cfg.Watch.Script,
			},
			DebounceDur: cfg.Watch.Debounce,
		})
		if err != nil {
			cancel()
			return Model{}, err
		}
		if loaded, err = w.Load(); err != nil {
			_ = w.Stop()
			cancel()
			return Model{}, err
		}
		for _, c := range loaded {
			switch c.Target {
			case watcher.Markup:
				sessOpts = append(sessOpts, session.WithMarkup(c.Content))
			case watcher.Style:
				sessOpts = append(sessOpts, session.WithStyle(c.Content))
			}
		}
	}

	ctrl := session.New(opts.Executor, sessOpts...)
	for _, c := range loaded {
		if c.Target == watcher.Script {
			ctrl.SetScript(c.Content)
		}
	}

	snap := ctrl.Snapshot()
	panes := []*editor.Pane{
		editor.New(layout.Markup, "HTML", cfg.Editor.TabSize),
		editor.New(layout.Style, "CSS", cfg.Editor.TabSize),
		editor.New(layout.Script, scriptTitle(snap.Language), cfg.Editor.TabSize),
	}
	panes[0].SetValue(snap.Markup)
	panes[1].SetValue(snap.Style)
	panes[2].SetValue(snap.Script)
	for _, c := range loaded {
		p := panes[targetIndex(c.Target)]
		p.SetTitle(p.Title() + " · " + filepath.Base(c.Path))
	}
	for _, p := range panes {
		coord.Mount(p.ID(), p)
	}
	panes[0].Focus()

	m := Model{
		ctrl:       ctrl,
		coord:      coord,
		keys:       keys.DefaultKeyMap(),
		help:       help.New(),
		panes:      panes,
		output:     output.New(0, 0),
		preview:    viewport.New(0, 0),
		toaster:    toaster.New(),
		ctx:        ctx,
		cancel:     cancel,
		relayouts:  relayouts,
		configPath: opts.ConfigPath,
	}
	m.changes = pubsub.NewContinuousListener[session.Change](ctx, ctrl)

	if w != nil {
		if err := w.Start(); err != nil {
			_ = w.Stop()
			_ = m.Close()
			return Model{}, err
		}
		m.watcher = w
		m.watched = pubsub.NewContinuousListener[watcher.Change](ctx, w)
	}

	m.applyState(snap)
	log.Info(log.CatUI, "editor ready", "session", ctrl.ID(), "language", snap.Language, "watching", w != nil)
	return m, nil
}

// Controller exposes the session behind the view.
func (m Model) Controller() *session.Controller { return m.ctrl }

// Init implements tea.Model interface.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.changes.Listen(), m.waitRelayout()}
	if m.watched != nil {
		cmds = append(cmds, m.watched.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model interface.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.coord.Invalidate("window resized")
		return m, nil

	case pubsub.Event[session.Change]:
		m.applyState(m.ctrl.Snapshot())
		return m, m.changes.Listen()

	case pubsub.Event[watcher.Change]:
		var cmd tea.Cmd
		m, cmd = m.applyWatched(msg.Payload)
		return m, tea.Batch(cmd, m.watched.Listen())

	case relayoutMsg:
		m.remeasure(msg.pass)
		return m, m.waitRelayout()

	case runFinishedMsg:
		return m.handleRunFinished(msg)

	case themeSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatConfig, "saving theme failed", msg.err, "path", m.configPath)
			return m.toast("Could not save theme: "+msg.err.Error(), toaster.LevelError)
		}
		return m.toast(fmt.Sprintf("Theme %s saved", msg.theme), toaster.LevelSuccess)

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other widget messages.
	_, cmd := m.panes[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		m.coord.Invalidate("help toggled")
		return m, nil

	case key.Matches(msg, m.keys.Run):
		return m, m.runCmd()

	case key.Matches(msg, m.keys.CycleLanguage):
		id := m.ctrl.CycleLanguage()
		m.syncScriptPane()
		m.applyState(m.ctrl.Snapshot())
		opt, _ := catalog.Lookup(id)
		return m.toast("Language: "+opt.Label, toaster.LevelInfo)

	case key.Matches(msg, m.keys.ClearOutput):
		m.ctrl.ClearOutput()
		m.applyState(m.ctrl.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.SwitchTab):
		next := session.TabPreview
		if m.state.ActiveTab == session.TabPreview {
			next = session.TabOutput
		}
		m.ctrl.SelectTab(next)
		m.applyState(m.ctrl.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.TogglePreview):
		m.ctrl.TogglePreviewExpanded()
		m.applyState(m.ctrl.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		theme := m.ctrl.ToggleTheme()
		m.applyState(m.ctrl.Snapshot())
		return m, m.saveThemeCmd(theme)

	case key.Matches(msg, m.keys.ToggleDiff):
		m.ctrl.SelectTab(session.TabOutput)
		m.output.ToggleDiff()
		m.applyState(m.ctrl.Snapshot())
		return m, nil

	case key.Matches(msg, m.keys.NextPane):
		return m, m.focusPane((m.focus + 1) % len(m.panes))
	case key.Matches(msg, m.keys.Markup):
		return m, m.focusPane(0)
	case key.Matches(msg, m.keys.Style):
		return m, m.focusPane(1)
	case key.Matches(msg, m.keys.Script):
		return m, m.focusPane(2)

	case key.Matches(msg, m.keys.Indent):
		if m.panes[m.focus].Indent() {
			m.pushBuffer(m.focus)
		}
		return m, nil
	}

	changed, cmd := m.panes[m.focus].Update(msg)
	if changed {
		m.pushBuffer(m.focus)
	}
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if tea.MouseEvent(msg).IsWheel() {
		if inZone(zoneResult, msg) {
			var cmd tea.Cmd
			if m.state.ActiveTab == session.TabPreview {
				m.preview, cmd = m.preview.Update(msg)
			} else {
				m.output, cmd = m.output.Update(msg)
			}
			return m, cmd
		}
		_, cmd := m.panes[m.focus].Update(msg)
		return m, cmd
	}

	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	switch {
	case inZone(zoneRun, msg):
		return m, m.runCmd()
	case inZone(zoneTabOutput, msg):
		m.ctrl.SelectTab(session.TabOutput)
	case inZone(zoneTabPreview, msg):
		m.ctrl.SelectTab(session.TabPreview)
	case inZone(zoneClear, msg):
		m.ctrl.ClearOutput()
	default:
		for i, p := range m.panes {
			if inZone(p.ZoneID(), msg) {
				return m, m.focusPane(i)
			}
		}
		return m, nil
	}
	m.applyState(m.ctrl.Snapshot())
	return m, nil
}

func inZone(id string, msg tea.MouseMsg) bool {
	z := zone.Get(id)
	return z != nil && z.InBounds(msg)
}

func (m Model) handleRunFinished(msg runFinishedMsg) (tea.Model, tea.Cmd) {
	m.applyState(m.ctrl.Snapshot())
	switch {
	case errors.Is(msg.err, session.ErrRunInFlight):
		return m.toast("A run is already in progress", toaster.LevelWarn)
	case msg.err != nil:
		log.ErrorErr(log.CatUI, "run failed to start", msg.err)
		return m.toast(msg.err.Error(), toaster.LevelError)
	case msg.outcome.Failed():
		return m.toast("Run failed", toaster.LevelError)
	}
	return m, nil
}

func (m Model) runCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		outcome, err := ctrl.Run(ctx)
		return runFinishedMsg{outcome: outcome, err: err}
	}
}

func (m Model) saveThemeCmd(theme session.Theme) tea.Cmd {
	if m.configPath == "" {
		return nil
	}
	path := m.configPath
	return func() tea.Msg {
		return themeSavedMsg{theme: theme, err: config.SaveTheme(path, string(theme))}
	}
}

func (m Model) waitRelayout() tea.Cmd {
	ctx, ch := m.ctx, m.relayouts
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case p := <-ch:
			return relayoutMsg{pass: p}
		}
	}
}

func (m Model) toast(message string, level toaster.Level) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toaster, cmd = m.toaster.Show(message, level)
	return m, cmd
}

func (m *Model) focusPane(i int) tea.Cmd {
	if i == m.focus {
		return nil
	}
	m.panes[m.focus].Blur()
	m.focus = i
	return m.panes[i].Focus()
}

// pushBuffer hands pane i's text to the session.
func (m *Model) pushBuffer(i int) {
	value := m.panes[i].Value()
	switch m.panes[i].ID() {
	case layout.Markup:
		m.ctrl.SetMarkup(value)
	case layout.Style:
		m.ctrl.SetStyle(value)
	case layout.Script:
		m.ctrl.SetScript(value)
	}
	m.applyState(m.ctrl.Snapshot())
}

// syncScriptPane reloads the script pane after a language switch reseeded
// the buffer.
func (m *Model) syncScriptPane() {
	snap := m.ctrl.Snapshot()
	p := m.panes[2]
	p.SetValue(snap.Script)
	p.SetTitle(scriptTitle(snap.Language))
}

func (m Model) applyWatched(c watcher.Change) (Model, tea.Cmd) {
	i := targetIndex(c.Target)
	if m.panes[i].Value() == c.Content {
		return m, nil
	}
	m.panes[i].SetValue(c.Content)
	m.pushBuffer(i)
	log.Debug(log.CatUI, "buffer reloaded from file", "target", c.Target, "path", c.Path)
	return m.toast("Reloaded "+filepath.Base(c.Path), toaster.LevelInfo)
}

// remeasure lets every pane the coordinator laid out adopt its box.
func (m *Model) remeasure(pass layout.Pass) {
	n := 0
	for _, p := range m.panes {
		if p.Remeasure() {
			n++
		}
	}
	log.Debug(log.CatUI, "panes re-measured", "pass", pass.Seq, "reason", pass.Reason, "panes", n)
}

// applyState refreshes the widgets that mirror session state. Pane text is
// never overwritten from here; panes are the source of their own edits.
func (m *Model) applyState(s session.State) {
	prev := m.state
	m.state = s

	if prev.Theme != s.Theme {
		m.output.SetPalette(styles.ForTheme(string(s.Theme)))
	}
	m.output.SetOutput(s.Output, s.PreviousOutput)
	if prev.PreviewExpanded != s.PreviewExpanded {
		m.resize()
	}
	m.renderPreview()
}

// resize assigns boxes for the current screen and preview expansion. Panes
// keep their old measurement until the coordinator's next pass.
func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.help.Width = m.width

	footerH := lipgloss.Height(m.help.View(m.keys))
	bodyH := max(m.height-headerHeight-footerH, 8)

	resultH := bodyH / 3
	if m.state.PreviewExpanded {
		resultH = bodyH * 2 / 3
	}
	resultH = max(resultH, 4)
	editorH := max(bodyH-resultH, 3)

	paneW := m.width / len(m.panes)
	for i, p := range m.panes {
		w := paneW
		if i == len(m.panes)-1 {
			w = m.width - paneW*(len(m.panes)-1)
		}
		p.SetBox(w, editorH)
	}

	m.resultH = resultH
	innerW := max(m.width-2, 1)
	innerH := max(resultH-3, 1) // border and tab bar
	m.output.SetSize(innerW, innerH)
	m.preview.Width = innerW
	m.preview.Height = innerH
	m.renderPreview()
}

// renderPreview re-renders the artifact listing when it, the width or the
// theme changed. Only the visible tab is rendered.
func (m *Model) renderPreview() {
	if m.state.ActiveTab != session.TabPreview || m.preview.Width <= 0 {
		return
	}
	theme := string(m.state.Theme)
	sig := fmt.Sprintf("%d|%s|%s", m.preview.Width, theme, m.state.Artifact)
	if sig == m.renderedFor {
		return
	}
	if !m.renderer.Matches(m.preview.Width, theme) {
		r, err := uipreview.New(m.preview.Width, theme)
		if err != nil {
			log.ErrorErr(log.CatRender, "creating preview renderer", err)
			m.preview.SetContent(m.state.Artifact.String())
			return
		}
		m.renderer = r
	}
	m.preview.SetContent(m.renderer.Render(m.state.Artifact))
	m.renderedFor = sig
}

// View implements tea.Model interface.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	pal := styles.ForTheme(string(m.state.Theme))

	paneViews := make([]string, len(m.panes))
	for i, p := range m.panes {
		paneViews[i] = p.View(pal)
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(pal),
		lipgloss.JoinHorizontal(lipgloss.Top, paneViews...),
		m.resultView(pal),
		m.help.View(m.keys),
	)
	view = m.toaster.Overlay(view, m.width, m.height, pal)
	return zone.Scan(view)
}

func (m Model) headerView(pal styles.Palette) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(pal.Title).Render("polypad")
	run := zone.Mark(zoneRun, pal.Button(m.state.RunLabel(), m.state.Executing))
	info := pal.Hint(fmt.Sprintf("%s · %s theme · %d runs", scriptTitle(m.state.Language), m.state.Theme, m.state.Runs))
	line := title + "  " + run + "  " + info
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m Model) resultView(pal styles.Palette) string {
	onOutput := m.state.ActiveTab == session.TabOutput
	bar := zone.Mark(zoneTabOutput, pal.Tab("Output", onOutput)) +
		zone.Mark(zoneTabPreview, pal.Tab("Preview", !onOutput))

	var body string
	if onOutput {
		bar += " " + zone.Mark(zoneClear, pal.Hint("[clear]"))
		if m.output.DiffMode() {
			bar += " " + pal.Hint("diff vs previous run")
		}
		if m.state.OutputStale {
			bar += " " + pal.Hint("· script changed since last run")
		}
		body = m.output.View()
	} else {
		body = m.preview.View()
	}

	title := "Result"
	if m.state.PreviewExpanded {
		title = "Result (expanded)"
	}
	return zone.Mark(zoneResult, styles.Frame(bar+"\n"+body, title, m.width, m.resultH, false, pal))
}

// Close stops the watcher and the relayout timer and releases listeners.
func (m *Model) Close() error {
	m.cancel()
	m.coord.Close()
	m.ctrl.Close()
	if m.watcher != nil {
		return m.watcher.Stop()
	}
	return nil
}

func scriptTitle(id catalog.LanguageID) string {
	if opt, ok := catalog.Lookup(id); ok {
		return opt.Label
	}
	return "Script"
}

func targetIndex(t watcher.Target) int {
	switch t {
	case watcher.Markup:
		return 0
	case watcher.Style:
		return 1
	default:
		return 2
	}
}
