package session

import (
	"context"
	"testing"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	st := NewRedisStore(rdb, 0)
	ctx := context.Background()

	_, err = st.Load(ctx, 42)
	assert.ErrorIs(t, err, ErrNoSession)

	up := model.PendingUpload{Type: model.UploadLink, Link: "https://mediafire.com/file/abc/app.apk"}
	require.NoError(t, st.Save(ctx, 42, up))
	assert.True(t, mr.Exists("upload:state:42"))
	assert.Equal(t, time.Duration(0), mr.TTL("upload:state:42"), "no expiry by default")

	got, err := st.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.UploadLink, got.Type)
	assert.Equal(t, up.Link, got.Link)

	require.NoError(t, st.Delete(ctx, 42))
	_, err = st.Load(ctx, 42)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	st := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, 7, model.PendingUpload{Type: model.UploadFile, File: &model.File{Name: "a.zip"}}))
	assert.Equal(t, time.Hour, mr.TTL("upload:state:7"))

	mr.FastForward(2 * time.Hour)
	_, err = st.Load(ctx, 7)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore_Expiry(t *testing.T) {
	st := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, 1, model.PendingUpload{Type: model.UploadLink, Link: "http://x"}))
	_, err := st.Load(ctx, 1)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = st.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStore_NoTTLKeepsState(t *testing.T) {
	st := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, 1, model.PendingUpload{Type: model.UploadLink, Link: "http://x"}))

	st.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	got, err := st.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "http://x", got.Link)
}
