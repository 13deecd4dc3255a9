package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalObjectStore(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, store.CreateBucket(ctx, "uploads"))

	require.NoError(t, store.PutObject(ctx, "uploads", "a/b.xlsx", strings.NewReader("hello")))

	object, err := store.GetObject(ctx, "uploads", "a/b.xlsx")
	require.NoError(t, err)
	data, err := io.ReadAll(object)
	require.NoError(t, err)
	require.NoError(t, object.Close())
	assert.Equal(t, "hello", string(data))

	_, err = store.GetObject(ctx, "uploads", "missing.xlsx")
	assert.Error(t, err)

	require.NoError(t, store.DeleteObjects(ctx, "uploads", "a"))

	_, err = store.GetObject(ctx, "uploads", "a/b.xlsx")
	assert.Error(t, err)
}

func TestLocalObjectStoreOverwrite(t *testing.T) {
	store, err := NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "uploads", "key", strings.NewReader("one")))
	require.NoError(t, store.PutObject(ctx, "uploads", "key", strings.NewReader("two")))

	object, err := store.GetObject(ctx, "uploads", "key")
	require.NoError(t, err)
	data, err := io.ReadAll(object)
	require.NoError(t, err)
	require.NoError(t, object.Close())
	assert.Equal(t, "two", string(data))
}
