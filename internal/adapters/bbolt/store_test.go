package bbolt

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/corey/tsgateway/internal/domain/token"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func sampleTokens() []token.Token {
	return []token.Token{
		token.Span(11, 12, 12, token.HashKind("}")),
		token.Span(3, 7, 12, token.KindFunction),
		token.Span(0, 2, 12, token.KindKeyword),
	}
}

func TestStore_PutGet(t *testing.T) {
	store, _ := newTestStore(t)
	src := []byte("fn main() {}")

	_, ok, err := store.Get("structural", 0, "rust@1", src)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache misses")

	require.NoError(t, store.Put("structural", 0, "rust@1", src, sampleTokens()))

	got, ok, err := store.Get("structural", 0, "rust@1", src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTokens(), got)
}

func TestStore_KeyedByModeLangAndSource(t *testing.T) {
	store, _ := newTestStore(t)
	src := []byte("fn main() {}")
	require.NoError(t, store.Put("structural", 0, "rust@1", src, sampleTokens()))

	_, ok, _ := store.Get("highlight", 0, "rust@1", src)
	assert.False(t, ok, "other mode")
	_, ok, _ = store.Get("structural", 1, "rust@1", src)
	assert.False(t, ok, "other language")
	_, ok, _ = store.Get("structural", 0, "rust@1", []byte("fn main() { }"))
	assert.False(t, ok, "other source")
	_, ok, _ = store.Get("structural", 0, "rust@2", src)
	assert.False(t, ok, "other grammar")
}

func TestStore_Overwrite(t *testing.T) {
	store, _ := newTestStore(t)
	src := []byte("x = 1")
	require.NoError(t, store.Put("structural", 2, "rust@1", src, sampleTokens()))
	require.NoError(t, store.Put("structural", 2, "rust@1", src, sampleTokens()[:1]))

	got, _, err := store.Get("structural", 2, "rust@1", src)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	n, err := store.Len("structural")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	src := []byte("int x;")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("structural", 1, "rust@1", src, sampleTokens()))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, ok, err := store.Get("structural", 1, "rust@1", src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTokens(), got)
}

func TestStore_CorruptEntry(t *testing.T) {
	store, _ := newTestStore(t)
	src := []byte("x")

	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte("structural"))
		if err != nil {
			return err
		}
		return b.Put(cacheKey(0, "rust@1", src), []byte{1, 2, 3, 4, 5})
	}))

	_, ok, err := store.Get("structural", 0, "rust@1", src)
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrCorruptBuffer)
	assert.False(t, ok)
}

func TestStore_Purge(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Put("structural", 0, "rust@1", []byte("a"), sampleTokens()))
	require.NoError(t, store.Put("highlight", 0, "rust@1", []byte("a"), sampleTokens()))
	require.NoError(t, store.Purge())

	for _, mode := range []string{"structural", "highlight"} {
		n, err := store.Len(mode)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	require.NoError(t, store.Purge(), "purging an empty cache is fine")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := []byte{byte('a' + i)}
			assert.NoError(t, store.Put("structural", i%4, "rust@1", src, sampleTokens()))
			_, ok, err := store.Get("structural", i%4, "rust@1", src)
			assert.NoError(t, err)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	n, err := store.Len("structural")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t,
		"3:odin@ab:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		string(cacheKey(3, "odin@ab", nil)))
	assert.NotEqual(t, cacheKey(0, "g", []byte("a")), cacheKey(0, "g", []byte("b")))
	assert.NotEqual(t, cacheKey(0, "rust@1", []byte("a")), cacheKey(0, "rust@2", []byte("a")))
}

func TestNewStore_BadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewStore(filepath.Join(blocker, "cache.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bbolt open")
}
