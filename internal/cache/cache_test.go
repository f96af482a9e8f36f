package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/anchorx/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("https://example.com/a")
	b := Key("https://example.com/b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Key("https://example.com/a"))
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, ":")
}

func TestNew(t *testing.T) {
	_, isNop := New(model.CacheConfig{Enabled: false}).(Nop)
	assert.True(t, isNop)

	_, isLayered := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Minute}).(*LayeredCache)
	assert.True(t, isLayered)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("body"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("body"), got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("a", []byte("1"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire")
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	c := NewDiskCache(dir, time.Hour)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("<html>"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("<html>"), got)

	require.NoError(t, c.Delete("k"))
	require.NoError(t, c.Delete("k"), "second delete is a no-op")

	require.NoError(t, c.Clear())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	_, err := os.Stat(c.path("k"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, os.WriteFile(c.path("k"), []byte("not json"), 0o644))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Seed disk through a separate instance so the memory layer starts empty
	require.NoError(t, NewDiskCache(dir, time.Hour).Set("k", []byte("doc"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("doc"), got)

	mem := c.memory.(*MemoryCache)
	_, ok = mem.Get("k")
	assert.True(t, ok)

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}
