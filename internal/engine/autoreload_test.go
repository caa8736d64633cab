package engine

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentic-research/lina/internal/ingest"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mailProfile = `
app: mail
packages: [com.example.mail]
screens:
  - name: inbox
    validate:
      - name: header
        queries:
          - keys: [text]
            action: equals
            value: Inbox
`

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messenger.json"), []byte(messengerProfile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.yaml"), []byte(mailProfile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	e, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, e.Profiles(), 2)
	assert.Equal(t, "mail", e.Profiles()[0].App, "loaded in name order")
	assert.NotNil(t, e.Profile("com.example.messenger"))
	assert.Nil(t, e.Profile("com.example.other"))

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWatchProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messenger.json"), []byte(messengerProfile), 0o644))
	e, err := LoadDir(dir)
	require.NoError(t, err)
	h := NewHotSwap(e)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	closer, err := WatchProfiles(dir, h, 20*time.Millisecond, logger)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	inbox := ingest.Event{PackageName: "com.example.mail"}
	_, err = h.Resolve(inbox)
	assert.ErrorIs(t, err, ErrNoProfile)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.yaml"), []byte(mailProfile), 0o644))
	assert.Eventually(t, func() bool {
		return h.Current().Profile("com.example.mail") != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"app": ""}`), 0o644))
	time.Sleep(200 * time.Millisecond)
	current := h.Current()
	assert.NotNil(t, current.Profile("com.example.mail"), "failed reload keeps the current engine")
	assert.NotNil(t, current.Profile("com.example.messenger"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func TestWatchProfilesDebounce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messenger.json"), []byte(messengerProfile), 0o644))
	e, err := LoadDir(dir)
	require.NoError(t, err)
	h := NewHotSwap(e)

	var logs syncBuffer
	closer, err := WatchProfiles(dir, h, 250*time.Millisecond, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	path := filepath.Join(dir, "mail.yaml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(mailProfile), 0o644))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Nil(t, h.Current().Profile("com.example.mail"), "no reload before the burst settles")

	assert.Eventually(t, func() bool {
		return h.Current().Profile("com.example.mail") != nil
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, logs.count("profiles reloaded"), "a burst of writes reloads once")
}

func TestShouldReload(t *testing.T) {
	assert.True(t, shouldReload(fsnotify.Event{Name: "/p/a.hcl", Op: fsnotify.Write}))
	assert.True(t, shouldReload(fsnotify.Event{Name: "/p/a.yml", Op: fsnotify.Remove}))
	assert.False(t, shouldReload(fsnotify.Event{Name: "/p/.a.json.swp", Op: fsnotify.Write}))
	assert.False(t, shouldReload(fsnotify.Event{Name: "/p/a.txt", Op: fsnotify.Create}))
	assert.False(t, shouldReload(fsnotify.Event{Name: "/p/a.json", Op: fsnotify.Chmod}))
}
