package watcher_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/polypad/internal/pubsub"
	"github.com/zjrosen/polypad/internal/watcher"
)

func startWatcher(t *testing.T, files map[watcher.Target]string) <-chan pubsub.Event[watcher.Change] {
	t.Helper()
	w, err := watcher.New(watcher.Config{Files: files, DebounceDur: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch := w.Subscribe(ctx)
	require.NoError(t, w.Start())
	return ch
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>0</p>"), 0644))

	changes := startWatcher(t, map[watcher.Target]string{watcher.Markup: path})

	for i := 1; i <= 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("<p>%d</p>", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case ev := <-changes:
		assert.Equal(t, watcher.Markup, ev.Payload.Target)
		assert.Equal(t, "<p>10</p>", ev.Payload.Content)
	case <-time.After(time.Second):
		t.Fatal("expected change but got timeout")
	}

	select {
	case ev := <-changes:
		t.Fatalf("unexpected second change: %+v", ev.Payload)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_SeparateTargets(t *testing.T) {
	dir := t.TempDir()
	style := filepath.Join(dir, "style.css")
	script := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(style, nil, 0644))
	require.NoError(t, os.WriteFile(script, nil, 0644))

	changes := startWatcher(t, map[watcher.Target]string{watcher.Style: style, watcher.Script: script})

	require.NoError(t, os.WriteFile(style, []byte("p{}"), 0644))
	require.NoError(t, os.WriteFile(script, []byte("print(1)"), 0644))

	got := map[watcher.Target]string{}
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-changes:
			got[ev.Payload.Target] = ev.Payload.Content
		case <-deadline:
			t.Fatalf("only saw %v", got)
		}
	}
	require.Equal(t, "p{}", got[watcher.Style])
	require.Equal(t, "print(1)", got[watcher.Script])
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	changes := startWatcher(t, map[watcher.Target]string{watcher.Markup: path})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))

	select {
	case ev := <-changes:
		t.Fatalf("unexpected change: %+v", ev.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.rb")
	require.NoError(t, os.WriteFile(path, []byte("puts 1"), 0644))

	w, err := watcher.New(watcher.Config{Files: map[watcher.Target]string{watcher.Script: path, watcher.Style: ""}})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	loaded, err := w.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, watcher.Script, loaded[0].Target)
	require.Equal(t, "puts 1", loaded[0].Content)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := watcher.New(watcher.Config{})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestWatcher_StartFailsForMissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.Config{Files: map[watcher.Target]string{
		watcher.Markup: filepath.Join(t.TempDir(), "missing", "index.html"),
	}})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.Error(t, w.Start())
}
