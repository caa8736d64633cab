package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentic-research/lina/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSnapshot = `{"root": {"className": "Frame", "children": [
  {"className": "Toolbar", "children": [{"className": "TextView", "text": "Alice"}]},
  {"className": "ListView", "children": [
    {"className": "Row", "children": [{"className": "TextView", "text": "hello"}, {"className": "Time", "text": "09:15"}]},
    null
  ]}
]}}`

const testProfile = `
app: messenger
packages: [com.example.messenger]
screens:
  - name: chat
    validate:
      - name: messages
        queries:
          - keys: [className]
            action: equals
            value: ListView
    fields:
      - name: username
        path: [0, 0]
    items:
      key: messages
      find:
        - name: messages
          queries:
            - keys: [className]
              action: equals
              value: ListView
      extract:
        text:
          - - key: children
              action: first
              where: className
              value: TextView
            - key: content
              action: get
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, selector, groupsPath, specPath, pushResolved, strict = "", "", "", "", false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestFindCommand(t *testing.T) {
	dir := t.TempDir()
	snap := writeFile(t, dir, "snap.json", testSnapshot)
	groups := writeFile(t, dir, "groups.yaml", `
- name: times
  queries:
    - keys: [className]
      action: contains
      value: time
`)

	out, err := run(t, "find", snap, "--groups", groups)
	require.NoError(t, err)
	assert.JSONEq(t, `{"times": [{"className": "Time", "content": "09:15"}]}`, out)

	t.Run("selector", func(t *testing.T) {
		out, err := run(t, "find", snap, "--groups", groups, "--selector", "$.root.children[0]")
		require.NoError(t, err)
		assert.JSONEq(t, `{"times": []}`, out)
	})

	t.Run("bad groups", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `[{"name": "x", "queries": [{"keys": ["text"], "action": "like", "value": "a"}]}]`)
		_, err := run(t, "find", snap, "--groups", bad)
		assert.Error(t, err)
	})
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	snap := writeFile(t, dir, "snap.json", testSnapshot)

	ok := writeFile(t, dir, "ok.json", `[{"name": "toolbar", "queries": [{"keys": ["className"], "action": "equals", "value": "toolbar"}]}]`)
	out, err := run(t, "validate", snap, "--groups", ok)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	missing := writeFile(t, dir, "missing.json", `[{"name": "tabs", "queries": [{"keys": ["className"], "action": "equals", "value": "TabLayout"}]}]`)
	out, err = run(t, "validate", snap, "--groups", missing)
	assert.ErrorIs(t, err, errValidationFailed)
	assert.Equal(t, "false\n", out)
}

func TestSerializeCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "serialize", writeFile(t, dir, "snap.json", `{"className": "A", "children": [null, {"text": " b "}]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"className": "A", "children": [{"content": "b"}]}`, out)

	out, err = run(t, "serialize", writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n"))
	require.NoError(t, err)
	assert.Contains(t, out, `"className": "source_file"`)
	assert.Contains(t, out, `"className": "function_declaration"`)

	broken := writeFile(t, dir, "broken.go", "package main\n\nfunc main() {\n\tx := \n}\n")
	_, err = run(t, "serialize", broken)
	require.NoError(t, err)
	_, err = run(t, "serialize", broken, "--strict")
	var syntaxErr *ingest.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.json",
		`{"className": "Row", "children": [{"className": "TextView", "content": "hello"}, {"className": "Time", "content": "09:15"}]}`)
	spec := writeFile(t, dir, "spec.json", `[{
		"meta.time": [[{"key": "children", "action": "last"}, {"key": "content", "action": "get"}]],
		"text": [[{"key": "children", "action": "item_0"}, {"key": "content", "action": "get"}]],
		"missing": [[{"key": "children", "action": "item_9"}]]
	}]`)

	out, err := run(t, "extract", doc, "--spec", spec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta": {"time": "09:15"}, "text": "hello", "missing": null}`, out)
}

func testConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "lina.yaml", "log:\n  level: error\nqueue:\n  dir: "+filepath.Join(dir, "queue")+"\n")
}

func pendingFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(profiles, 0o755))
	writeFile(t, profiles, "messenger.yaml", testProfile)
	conf := testConfig(t, dir)
	event := writeFile(t, dir, "event.json",
		`{"packageName": "com.example.messenger", "eventType": "changed", "timestamp": 1700000000000, "root": `+
			strings.TrimSuffix(strings.TrimPrefix(testSnapshot, `{"root": `), "}")+`}`)

	out, err := run(t, "resolve", event, "--config", conf, "--profiles", profiles, "--push")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"packageName": "com.example.messenger",
		"eventType": "changed",
		"timestamp": 1700000000000,
		"data": {"app": "messenger", "screen": "chat", "username": "Alice", "messages": [{"text": "hello"}]}
	}`, out)
	assert.Len(t, pendingFiles(t, filepath.Join(dir, "queue")), 1)

	t.Run("unknown package", func(t *testing.T) {
		other := writeFile(t, dir, "other.json", `{"packageName": "com.other", "root": {"className": "A"}}`)
		_, err := run(t, "resolve", other, "--config", conf, "--profiles", profiles)
		assert.Error(t, err)
	})
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(profiles, 0o755))
	writeFile(t, profiles, "messenger.yaml", testProfile)
	conf := testConfig(t, dir)

	dbPath := filepath.Join(dir, "events.db")
	events, err := ingest.NewEventLog(dbPath)
	require.NoError(t, err)
	root := []byte(`{"className": "ListView", "children": [{"className": "Row", "children": [{"className": "TextView", "text": "hi"}]}]}`)
	require.NoError(t, events.Append("com.example.messenger", "changed", 1, root))
	require.NoError(t, events.Append("com.example.messenger", "changed", 2, root))
	require.NoError(t, events.Append("com.example.other", "changed", 3, root))
	require.NoError(t, events.Append("com.example.messenger", "changed", 4, []byte(`{`)))
	require.NoError(t, events.Close())

	out, err := run(t, "replay", dbPath, "--config", conf, "--profiles", profiles)
	require.NoError(t, err)
	assert.Equal(t, "resolved 2, unknown 1, skipped 1, queued 1\n", out)
	assert.Len(t, pendingFiles(t, filepath.Join(dir, "queue")), 1)
}

func TestUploadRequiresPrimary(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "upload", "--config", testConfig(t, dir))
	assert.ErrorContains(t, err, "primary.url")
}
