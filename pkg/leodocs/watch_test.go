package leodocs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, cache *TemplateCache) {
	t.Helper()
	tw, err := NewTemplateWatcher(root, cache, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tw.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestTemplateWatcherEvictsChangedTemplates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "minutes.docx"), []byte("v1"))
	writeFile(t, filepath.Join(root, "agenda.docx"), []byte("v1"))

	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	cache.Set("minutes.docx", &PreparedTemplate{})
	cache.Set("agenda.docx", &PreparedTemplate{})
	startWatcher(t, root, cache)

	require.NoError(t, os.WriteFile(filepath.Join(root, "minutes.docx"), []byte("v2"), 0o644))
	assert.Eventually(t, func() bool {
		_, ok := cache.Get("minutes.docx")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := cache.Get("agenda.docx")
	assert.True(t, ok, "unrelated templates stay cached")

	require.NoError(t, os.Remove(filepath.Join(root, "agenda.docx")))
	assert.Eventually(t, func() bool {
		_, ok := cache.Get("agenda.docx")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTemplateWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	startWatcher(t, root, cache)

	sub := filepath.Join(root, "virtual")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// The new directory is watched once its create event is handled, so
	// keep touching the file until an eviction is seen.
	assert.Eventually(t, func() bool {
		cache.Set("virtual/minutes.docx", &PreparedTemplate{})
		if err := os.WriteFile(filepath.Join(sub, "minutes.docx"), []byte("v1"), 0o644); err != nil {
			return false
		}
		time.Sleep(20 * time.Millisecond)
		_, ok := cache.Get("virtual/minutes.docx")
		return !ok
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNewTemplateWatcherMissingRoot(t *testing.T) {
	_, err := NewTemplateWatcher(filepath.Join(t.TempDir(), "missing"), NewTemplateCache(CacheConfig{MaxSize: 1}), nil)
	assert.Error(t, err)
}

func TestRelKey(t *testing.T) {
	root := filepath.Join("srv", "templates")
	assert.Equal(t, "minutes.docx", relKey(root, filepath.Join(root, "minutes.docx")))
	assert.Equal(t, "virtual/minutes.docx", relKey(root, filepath.Join(root, "virtual", "minutes.docx")))
	assert.Equal(t, "", relKey(root, root))
	assert.Equal(t, "", relKey(root, filepath.Join("srv", "other.docx")))
}
