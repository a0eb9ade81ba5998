package store

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	// In-memory Badger so nothing touches disk
	st, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func website(slug string) *model.Item {
	return &model.Item{
		Kind: model.KindWebsite,
		Slug: slug,
		Name: "Landing page",
		Website: &model.Website{
			HTML: "<html><head></head><body><h1>Hi</h1></body></html>",
			CSS:  "h1 { color: red; }",
			JS:   "console.log('hi')",
		},
	}
}

func TestBadgerStore_Put_And_Get(t *testing.T) {
	st := newTestStore(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }
	ctx := context.Background()

	in := website("landing")
	want := *in
	want.Website = &model.Website{HTML: in.Website.HTML, CSS: in.Website.CSS, JS: in.Website.JS}

	err := st.Put(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, in.ID, "Put should assign an id")
	assert.True(t, fixed.Equal(in.CreatedAt))

	byID, err := st.Get(ctx, model.KindWebsite, in.ID.String())
	require.NoError(t, err)
	assert.Equal(t, want.Website, byID.Website)
	assert.Equal(t, want.Slug, byID.Slug)
	assert.Equal(t, want.Name, byID.Name)
	assert.True(t, fixed.Equal(byID.CreatedAt))

	bySlug, err := st.Get(ctx, model.KindWebsite, "landing")
	require.NoError(t, err)
	assert.Equal(t, in.ID, bySlug.ID)

	// Raw record lives under item:<id>
	err = st.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get([]byte("item:" + in.ID.String()))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			var rec model.Item
			require.NoError(t, json.Unmarshal(val, &rec))
			assert.Equal(t, model.KindWebsite, rec.Kind)
			return nil
		})
	})
	assert.NoError(t, err)
}

func TestBadgerStore_Get_WrongKindOrMissing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	item := website("site")
	require.NoError(t, st.Put(ctx, item))

	_, err := st.Get(ctx, model.KindArticle, item.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Get(ctx, model.KindArticle, "site")
	assert.ErrorIs(t, err, ErrNotFound, "slugs are scoped per kind")

	_, err = st.Get(ctx, model.KindWebsite, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Get(ctx, "", "site")
	assert.ErrorIs(t, err, ErrNotFound, "slug lookups need a kind")

	got, err := st.Get(ctx, "", item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
}

func TestBadgerStore_DuplicateSlug(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, website("dup")))

	second := website("dup")
	err := st.Put(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateSlug)
	assert.Equal(t, uuid.Nil, second.ID, "failed Put must not touch the caller's item")

	// Same slug under another kind is fine
	article := &model.Item{Kind: model.KindArticle, Slug: "dup", Article: &model.Article{Title: "T", Body: "B"}}
	assert.NoError(t, st.Put(ctx, article))
}

func TestBadgerStore_DuplicateSlug_Concurrent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = st.Put(ctx, website("race"))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrDuplicateSlug):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestBadgerStore_List(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first := website("")
	require.NoError(t, st.Put(ctx, first))
	second := website("")
	require.NoError(t, st.Put(ctx, second))
	article := &model.Item{Kind: model.KindArticle, Article: &model.Article{Title: "News", Body: "Body"}}
	require.NoError(t, st.Put(ctx, article))

	sites, err := st.List(ctx, model.KindWebsite)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, second.ID, sites[0].ID, "newest first")
	assert.Equal(t, first.ID, sites[1].ID)

	all, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, article.ID, all[0].ID)

	media, err := st.List(ctx, model.KindMedia)
	require.NoError(t, err)
	assert.Empty(t, media)
}

func TestBadgerStore_Delete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	item := website("gone")
	require.NoError(t, st.Put(ctx, item))

	removed, err := st.Delete(ctx, model.KindWebsite, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, removed.ID)

	_, err = st.Get(ctx, model.KindWebsite, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	// The slug is free again
	assert.NoError(t, st.Put(ctx, website("gone")))
}

func TestBadgerStore_Delete_Missing_LeavesStoreUnchanged(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	item := website("keep")
	require.NoError(t, st.Put(ctx, item))

	_, err := st.Delete(ctx, model.KindWebsite, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Delete(ctx, model.KindArticle, item.ID)
	assert.ErrorIs(t, err, ErrNotFound, "kind must match")

	all, err := st.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, item.ID, all[0].ID)
}

func TestBadgerStore_Put_RejectsInvalid(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	err := st.Put(ctx, &model.Item{Kind: model.KindMedia, Media: &model.Media{}})
	assert.ErrorIs(t, err, model.ErrPayloadMismatch)

	// Keys shaped like ids would never reach the slug index on Get
	for _, slug := range []string{"deadbeefdeadbeefdeadbeefdeadbeef", "12345678-1234-1234-1234-123456789abc"} {
		err := st.Put(ctx, website(slug))
		assert.ErrorIs(t, err, model.ErrInvalidSlug, slug)
	}
	all, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBadgerStore_Blobs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	n, err := st.PutBlob(ctx, "abc/0", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	rc, err := st.OpenBlob(ctx, "abc/0")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "payload", string(data))

	require.NoError(t, st.DeleteBlob(ctx, "abc/0"))
	_, err = st.OpenBlob(ctx, "abc/0")
	assert.ErrorIs(t, err, ErrNotFound)
}
