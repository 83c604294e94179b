package scriptcache

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBytesReadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageagent.js")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	c, err := New(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	data, err := c.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)
}

func TestBytesFailsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "pageagent.js"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Bytes()
	require.Error(t, err)
}

func TestWriteInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageagent.js")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	c, err := New(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	data, err := c.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)

	require.NoError(t, os.WriteFile(path, []byte("v2 rebuilt"), 0o644))

	require.Eventually(t, func() bool {
		data, err := c.Bytes()
		return err == nil && string(data) == "v2 rebuilt"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestUnrelatedFilesDoNotInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageagent.js")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	c, err := New(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Bytes()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.js"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)

	data, err := c.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), data)
}
