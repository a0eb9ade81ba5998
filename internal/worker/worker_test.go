package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/queue"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-shiori/go-readability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockScraper struct {
	MockTitle   string
	MockContent string
	ShouldFail  bool
}

// Scrape simulates article scraping
func (m *MockScraper) Scrape(url string, timeout time.Duration) (*readability.Article, error) {
	if m.ShouldFail {
		return nil, fmt.Errorf("simulated 404 error")
	}
	return &readability.Article{
		Title:   m.MockTitle,
		Content: m.MockContent,
		Excerpt: "A short summary",
	}, nil
}

func newTestWorker(t *testing.T, scraper Scraper) (*Worker, *queue.RedisQueue, *store.BadgerStore) {
	t.Helper()

	// Spin up fake Redis
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	// In-memory Badger so nothing touches disk
	st, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	q := queue.NewRedisQueue(rdb)
	svc := intake.NewService(st, st, zap.NewNop(), nil)
	w := NewWorker(q, svc, zap.NewNop(), nil)
	w.scraper = scraper
	return w, q, st
}

// TestWorker_ProcessJob checks that a queued URL ends up as an HTML article.
func TestWorker_ProcessJob(t *testing.T) {
	w, q, st := newTestWorker(t, &MockScraper{
		MockTitle:   "Mocked Title",
		MockContent: "<p>This is fake content</p>",
	})

	require.NoError(t, q.Push(context.Background(), queue.ImportJob{
		URL:      "http://fake-url.com/post",
		Slug:     "fake-post",
		Category: "News",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	var item *model.Item
	require.Eventually(t, func() bool {
		got, err := st.Get(context.Background(), model.KindArticle, "fake-post")
		if err != nil {
			return false
		}
		item = got
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "Mocked Title", item.Article.Title)
	assert.Equal(t, "<p>This is fake content</p>", item.Article.Body)
	assert.Equal(t, model.FormatHTML, item.Article.Format)
	assert.Equal(t, "http://fake-url.com/post", item.Article.Source)
	assert.Equal(t, "A short summary", item.Article.Excerpt)
	assert.Equal(t, "News", item.Category)
}

// TestWorker_HandlesScrapeFailure checks that a failed scrape stores nothing.
func TestWorker_HandlesScrapeFailure(t *testing.T) {
	w, _, st := newTestWorker(t, &MockScraper{ShouldFail: true})

	_, err := w.Import(context.Background(), queue.ImportJob{URL: "http://bad-url.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, intake.ErrIO)
	assert.Contains(t, err.Error(), "simulated 404 error")

	items, err := st.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWorker_RejectsNonWebURL(t *testing.T) {
	w, _, _ := newTestWorker(t, &MockScraper{MockTitle: "x"})

	for _, bad := range []string{"ftp://example.com/a", "not a url", "https://"} {
		_, err := w.Import(context.Background(), queue.ImportJob{URL: bad})
		assert.ErrorIs(t, err, intake.ErrInvalidFormat, bad)
	}
}

func TestWorker_UntitledPageUsesHost(t *testing.T) {
	w, _, _ := newTestWorker(t, &MockScraper{MockContent: "<p>body</p>"})

	item, err := w.Import(context.Background(), queue.ImportJob{URL: "https://blog.example.com/p/1"})
	require.NoError(t, err)
	assert.Equal(t, "blog.example.com", item.Article.Title)
}
