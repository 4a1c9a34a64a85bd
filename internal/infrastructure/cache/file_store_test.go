package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/domain/reports"
)

func newTestFileStore(t *testing.T, threshold int) *FileStore {
	t.Helper()
	store, err := NewFileStore(FileStoreConfig{
		Dir:               filepath.Join(t.TempDir(), "data"),
		Namespace:         reports.NamespaceAnalysis,
		CompressThreshold: threshold,
	})
	require.NoError(t, err)
	return store
}

func TestFileStore_MissingDocumentIsEmpty(t *testing.T) {
	store := newTestFileStore(t, 0)
	assert.Empty(t, store.Load(context.Background()))
	assert.Equal(t, "analysis-cache.json", filepath.Base(store.Path()))
}

func TestFileStore_MergeKeepsOtherKeys(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, reports.Document{"a": json.RawMessage(`{"v":1}`)}))
	require.NoError(t, store.Merge(ctx, reports.Document{"b": json.RawMessage(`{"v":2}`)}))
	require.NoError(t, store.Merge(ctx, reports.Document{"a": json.RawMessage(`{"v":3}`)}))

	doc := store.Load(ctx)
	assert.JSONEq(t, `{"v":3}`, string(doc["a"]))
	assert.JSONEq(t, `{"v":2}`, string(doc["b"]))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_CorruptDocumentIsEmpty(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"a": tru`), 0o644))

	assert.Empty(t, store.Load(ctx))

	// the next refresh replaces the corrupt document
	require.NoError(t, store.Merge(ctx, reports.Document{"a": json.RawMessage(`1`)}))
	assert.Len(t, store.Load(ctx), 1)
}

func TestFileStore_CompressesLargeDocuments(t *testing.T) {
	store := newTestFileStore(t, 256)
	ctx := context.Background()

	big := json.RawMessage(fmt.Sprintf(`{"payload":%q}`, strings.Repeat("x", 4096)))
	require.NoError(t, store.Merge(ctx, reports.Document{"big": big}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, zstdMagic))
	assert.Less(t, len(data), 4096)

	doc := store.Load(ctx)
	assert.JSONEq(t, string(big), string(doc["big"]))
}

func TestFileStore_SmallDocumentsStayPlainJSON(t *testing.T) {
	store := newTestFileStore(t, DefaultCompressThreshold)
	require.NoError(t, store.Merge(context.Background(), reports.Document{"a": json.RawMessage(`1`)}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestFileStore_ConcurrentMergesDoNotLoseKeys(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			assert.NoError(t, store.Merge(ctx, reports.Document{key: json.RawMessage(`true`)}))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Load(ctx), 20)
}

func TestFileStore_Prune(t *testing.T) {
	store := newTestFileStore(t, 0)
	ctx := context.Background()
	require.NoError(t, store.Merge(ctx, reports.Document{
		"keep": json.RawMessage(`1`),
		"drop": json.RawMessage(`2`),
	}))

	removed, err := store.Prune(ctx, func(key string, _ json.RawMessage) bool { return key == "drop" })
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, reports.Document{"keep": json.RawMessage(`1`)}, store.Load(ctx))

	removed, err = store.Prune(ctx, func(string, json.RawMessage) bool { return false })
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestNewFileStore_RequiresDirAndNamespace(t *testing.T) {
	_, err := NewFileStore(FileStoreConfig{Namespace: "x"})
	assert.Error(t, err)
	_, err = NewFileStore(FileStoreConfig{Dir: t.TempDir()})
	assert.Error(t, err)
}
