package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreRetrieveDelete(t *testing.T) {
	ctx := context.Background()
	ls, err := NewLocalStorage(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	eventID := uuid.New()
	key, err := ls.Store(ctx, eventID, "poster.png", strings.NewReader("image"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "posters/"+eventID.String()+"/"))
	assert.Equal(t, "/uploads/"+key, ls.PublicURL(key))

	exists, err := ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	meta, err := ls.Metadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)

	rc, err := ls.Retrieve(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "image", string(data))

	require.NoError(t, ls.Delete(ctx, key))
	exists, err = ls.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = ls.Retrieve(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = ls.Retrieve(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectKey(t *testing.T) {
	eventID := uuid.New()
	now := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)

	key := objectKey(eventID, "../evil name?.png", now)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 5)
	assert.Equal(t, []string{"posters", eventID.String(), "2026", "04"}, parts[:4])
	assert.True(t, strings.HasSuffix(parts[4], "__evil_name_.png"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "poster", sanitizeFilename(""))
	assert.Equal(t, "a_b.png", sanitizeFilename("a b.png"))
	assert.Equal(t, "_x", sanitizeFilename("/x"))
}
