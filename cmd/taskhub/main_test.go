package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/config"
	"taskhub/internal/storage"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Driver = config.DriverMemory
	out := &bytes.Buffer{}
	return &app{cfg: &cfg, backend: storage.NewMemoryBackend(), out: out}, out
}

func (a *app) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out := a.out.(*bytes.Buffer)
	out.Reset()
	require.NoError(t, a.run(context.Background(), args[0], args[1:]))
	return out.String()
}

func addedID(t *testing.T, out string) string {
	t.Helper()
	id, ok := strings.CutPrefix(strings.TrimSpace(out), "Added task ")
	require.True(t, ok, out)
	return id
}

func TestCommandsShareSessionState(t *testing.T) {
	a, _ := newTestApp(t)

	id := addedID(t, a.mustRun(t, "add", "--title", "Buy milk", "--desc", "semi-skimmed"))
	a.mustRun(t, "add", "--title", "Write report")

	out := a.mustRun(t, "list", "--sort", "title", "--order", "asc")
	assert.Less(t, strings.Index(out, "Buy milk"), strings.Index(out, "Write report"))
	assert.Contains(t, out, "semi-skimmed")

	assert.Contains(t, a.mustRun(t, "status", "--id", id, "--to", "completed"), "moved to completed")
	out = a.mustRun(t, "board")
	assert.Contains(t, out, "== TODO (1)")
	assert.Contains(t, out, "== COMPLETED (1)")

	assert.Contains(t, a.mustRun(t, "edit", "--id", id, "--title", "Buy oat milk"), "updated")
	assert.Contains(t, a.mustRun(t, "list", "--q", "OAT"), "Buy oat milk")

	assert.Contains(t, a.mustRun(t, "delete", "--id", id), "deleted")
	assert.Contains(t, a.mustRun(t, "delete", "--id", id), "not found")
	assert.Contains(t, a.mustRun(t, "clear"), "Cleared 1 tasks")
	assert.Contains(t, a.mustRun(t, "list"), "No tasks found")
}

func TestSessionsAreSeparate(t *testing.T) {
	a, _ := newTestApp(t)

	a.mustRun(t, "add", "--session", "work", "--title", "deploy")
	assert.Contains(t, a.mustRun(t, "list", "--session", "home"), "No tasks found")
	assert.Contains(t, a.mustRun(t, "list", "--session", "work"), "deploy")

	assert.Contains(t, a.mustRun(t, "end", "--session", "work"), "ended")
	assert.Contains(t, a.mustRun(t, "list", "--session", "work"), "No tasks found")
}

func TestExportImport(t *testing.T) {
	for _, ext := range []string{"json", "csv"} {
		t.Run(ext, func(t *testing.T) {
			a, _ := newTestApp(t)
			file := filepath.Join(t.TempDir(), "tasks."+ext)

			a.mustRun(t, "add", "--title", "carry over", "--desc", "from export")
			assert.Contains(t, a.mustRun(t, "export", "--format", ext, "--out", file), "exported")

			assert.Contains(t, a.mustRun(t, "import", "--session", "fresh", "--file", file), "Imported 1 of 1")
			assert.Contains(t, a.mustRun(t, "import", "--session", "fresh", "--file", file), "Imported 0 of 1")
			assert.Contains(t, a.mustRun(t, "list", "--session", "fresh"), "from export")
		})
	}
}

func TestCommandErrors(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	assert.Error(t, a.run(ctx, "add", []string{"--title", "   "}))
	assert.Error(t, a.run(ctx, "status", []string{"--id", "x", "--to", "paused"}))
	assert.Error(t, a.run(ctx, "list", []string{"--order", "sideways"}))
	assert.Error(t, a.run(ctx, "list", []string{"--session", "../etc"}))
	assert.Error(t, a.run(ctx, "export", []string{"--format", "xml", "--out", filepath.Join(t.TempDir(), "x")}))
	assert.ErrorIs(t, a.run(ctx, "fly", nil), errUsage)
}

func TestImportMissingFile(t *testing.T) {
	a, out := newTestApp(t)
	missing := filepath.Join(t.TempDir(), "typo.json")

	err := a.run(context.Background(), "import", []string{"--file", missing})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotContains(t, out.String(), "Imported")
}
