package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/preview"
	"github.com/zjrosen/polypad/internal/pubsub"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, req execution.Request) (execution.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(execution.Response), args.Error(1)
}

type recordingRelayouter struct {
	reasons []string
}

func (r *recordingRelayouter) Invalidate(reason string) {
	r.reasons = append(r.reasons, reason)
}

func TestNew_Defaults(t *testing.T) {
	c := New(&mockExecutor{})
	s := c.Snapshot()

	require.NotEmpty(t, s.ID)
	require.Equal(t, DefaultMarkup, s.Markup)
	require.Equal(t, DefaultStyle, s.Style)
	require.Equal(t, catalog.Python, s.Language)
	require.Equal(t, catalog.Default().Seed, s.Script)
	require.Equal(t, ThemeDark, s.Theme)
	require.Equal(t, TabOutput, s.ActiveTab)
	require.False(t, s.PreviewExpanded)
	require.False(t, s.Executing)
	require.Empty(t, s.Output)
	require.Equal(t, preview.Compose(DefaultMarkup, DefaultStyle), s.Artifact)
	require.Equal(t, "Run Python", s.RunLabel())
}

func TestNew_Options(t *testing.T) {
	c := New(nil,
		WithLanguage(catalog.Ruby),
		WithTheme(ThemeLight),
		WithMarkup("<p>x</p>"),
		WithStyle("p{}"),
	)
	s := c.Snapshot()
	require.Equal(t, catalog.Ruby, s.Language)
	require.Equal(t, ThemeLight, s.Theme)
	require.Equal(t, preview.Compose("<p>x</p>", "p{}"), s.Artifact)

	ignored := New(nil, WithLanguage("cobol"), WithTheme("sepia")).Snapshot()
	require.Equal(t, catalog.Python, ignored.Language)
	require.Equal(t, ThemeDark, ignored.Theme)
}

func TestController_BufferEditsRecomposeArtifact(t *testing.T) {
	c := New(&mockExecutor{})

	c.SetMarkup("<h1>x</h1>")
	require.Equal(t, preview.Compose("<h1>x</h1>", DefaultStyle), c.Snapshot().Artifact)

	c.SetStyle("h1{color:red}")
	s := c.Snapshot()
	require.Equal(t, preview.Compose("<h1>x</h1>", "h1{color:red}"), s.Artifact)

	c.SetScript("print(1)")
	require.Equal(t, "print(1)", c.Snapshot().Script)
	require.Equal(t, s.Artifact, c.Snapshot().Artifact)
}

func TestController_SelectLanguageReseedsScript(t *testing.T) {
	c := New(&mockExecutor{})
	c.SetScript("my edits")

	require.True(t, c.SelectLanguage(catalog.JavaScript))
	s := c.Snapshot()
	require.Equal(t, catalog.JavaScript, s.Language)
	js, _ := catalog.Lookup(catalog.JavaScript)
	require.Equal(t, js.Seed, s.Script)

	require.False(t, c.SelectLanguage("cobol"))
	require.Equal(t, s, c.Snapshot())
}

func TestController_SelectLanguageProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := New(nil)
		c.SetScript(rapid.String().Draw(rt, "script"))
		before := c.Snapshot()

		id := catalog.LanguageID(rapid.OneOf(
			rapid.SampledFrom([]string{"python", "javascript", "ruby"}),
			rapid.String(),
		).Draw(rt, "id"))

		ok := c.SelectLanguage(id)
		after := c.Snapshot()

		opt, known := catalog.Lookup(id)
		if ok != known {
			rt.Fatalf("SelectLanguage(%q) = %v, lookup = %v", id, ok, known)
		}
		if known {
			if after.Language != opt.ID || after.Script != opt.Seed {
				rt.Fatalf("language %q not applied", id)
			}
		} else if after != before {
			rt.Fatalf("state changed for unknown id %q", id)
		}
		if after.Output != before.Output {
			rt.Fatalf("output touched by language selection")
		}
	})
}

func TestController_TabAndTheme(t *testing.T) {
	c := New(nil)

	require.True(t, c.SelectTab(TabPreview))
	require.Equal(t, TabPreview, c.Snapshot().ActiveTab)
	require.False(t, c.SelectTab("console"))
	require.Equal(t, TabPreview, c.Snapshot().ActiveTab)

	require.Equal(t, ThemeLight, c.ToggleTheme())
	require.Equal(t, ThemeDark, c.ToggleTheme())
	require.True(t, c.SetTheme(ThemeLight))
	require.False(t, c.SetTheme("solarized"))
	require.Equal(t, ThemeLight, c.Snapshot().Theme)
}

func TestController_PreviewToggleSchedulesRelayout(t *testing.T) {
	r := &recordingRelayouter{}
	c := New(nil, WithRelayouter(r))

	require.True(t, c.TogglePreviewExpanded())
	require.False(t, c.TogglePreviewExpanded())
	c.SetPreviewExpanded(false)
	c.SetPreviewExpanded(true)

	require.Equal(t, []string{"preview expanded", "preview collapsed", "preview expanded"}, r.reasons)
}

func TestController_Subscribe(t *testing.T) {
	c := New(nil)
	t.Cleanup(c.Close)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := c.Subscribe(ctx)
	c.SetMarkup("<b>hi</b>")

	select {
	case ev := <-ch:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, ChangeMarkup, ev.Payload.Kind)
		require.Equal(t, "<b>hi</b>", ev.Payload.State.Markup)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}

	// Late subscribers start from the latest change.
	late := c.Subscribe(ctx)
	ev := <-late
	require.Equal(t, "<b>hi</b>", ev.Payload.State.Markup)
}

func TestController_ClearOutput(t *testing.T) {
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, mock.Anything).Return(execution.Response{Output: "42\n"}, nil)
	c := New(exec)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "42\n", c.Snapshot().Output)

	c.ClearOutput()
	require.Empty(t, c.Snapshot().Output)
	require.Equal(t, 1, c.Snapshot().Runs)
}

func TestController_SentinelIsComparable(t *testing.T) {
	require.True(t, errors.Is(ErrRunInFlight, ErrRunInFlight))
}
