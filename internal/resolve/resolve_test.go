package resolve

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Resolver, *intake.Service) {
	t.Helper()
	st, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewResolver(st, st, zap.NewNop(), nil), intake.NewService(st, st, zap.NewNop(), nil)
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		query string
		want  Request
	}{
		{"mode=website&id=portfolio", Request{Mode: ModeWebsite, Key: "portfolio"}},
		{"mode=download&id=abc&file=2", Request{Mode: ModeDownload, Key: "abc", FileIndex: 2}},
		{"mode=news&id=abc", Request{Mode: ModeArticle, Key: "abc"}},
		{"website=portfolio", Request{Mode: ModeWebsite, Key: "portfolio"}},
		{"news=launch", Request{Mode: ModeArticle, Key: "launch"}},
		{"download=app&file=1", Request{Mode: ModeDownload, Key: "app", FileIndex: 1}},
		{"imagelink=pic&file=0", Request{Mode: ModeImage, Key: "pic"}},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		require.NoError(t, err)
		got, err := ParseQuery(q)
		require.NoError(t, err, tc.query)
		assert.Equal(t, tc.want, got, tc.query)
	}
}

func TestParseQuery_Errors(t *testing.T) {
	_, err := ParseQuery(url.Values{})
	assert.ErrorIs(t, err, ErrNoRequest)

	for _, query := range []string{
		"mode=bogus&id=x",
		"mode=website",
		"mode=download&id=x&file=-1",
		"download=x&file=two",
	} {
		q, _ := url.ParseQuery(query)
		_, err := ParseQuery(q)
		assert.ErrorIs(t, err, ErrBadRequest, query)
	}
}

func TestResolve_Website(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	item, err := svc.AddWebsite(ctx, intake.WebsiteRequest{
		Slug: "portfolio",
		Name: "Portfolio",
		HTML: page,
		CSS:  "body{}",
		JS:   "run()",
	})
	require.NoError(t, err)

	for _, key := range []string{"portfolio", item.ID.String()} {
		res, err := r.Resolve(ctx, Request{Mode: ModeWebsite, Key: key})
		require.NoError(t, err)
		assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
		assert.Contains(t, string(res.Body), "<style>\nbody{}\n</style>\n</head>")
		assert.Contains(t, string(res.Body), "<script>\nrun()\n</script>\n</body>")
	}
}

func TestResolve_NotFound(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, Request{Mode: ModeWebsite, Key: "nope"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Right key, wrong mode
	_, err = svc.AddWebsite(ctx, intake.WebsiteRequest{Slug: "site", Name: "Site", HTML: page})
	require.NoError(t, err)
	_, err = r.Resolve(ctx, Request{Mode: ModeArticle, Key: "site"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolve_ArticleFormats(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	text, err := svc.AddArticle(ctx, intake.ArticleRequest{
		Slug:  "plain",
		Title: "Launch <day>",
		Body:  "line one\n<b>line two</b>",
	})
	require.NoError(t, err)
	res, err := r.Resolve(ctx, Request{Mode: ModeArticle, Key: text.Slug})
	require.NoError(t, err)
	body := string(res.Body)
	assert.Contains(t, body, "<title>Launch &lt;day&gt;</title>")
	assert.Contains(t, body, "line one<br>\n&lt;b&gt;line two&lt;/b&gt;")
	assert.NotContains(t, body, `class="cover"`)

	md, err := svc.AddArticle(ctx, intake.ArticleRequest{
		Slug:   "md",
		Title:  "Notes",
		Body:   "# Heading\n\nSome *emphasis*.",
		Format: model.FormatMarkdown,
	})
	require.NoError(t, err)
	res, err = r.Resolve(ctx, Request{Mode: ModeArticle, Key: md.Slug})
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), "<h1>Heading</h1>")
	assert.Contains(t, string(res.Body), "<em>emphasis</em>")
}

func TestResolve_ArticleImage(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	item, err := svc.AddArticle(ctx, intake.ArticleRequest{
		Title: "With cover",
		Body:  "text",
		Image: &intake.Upload{Filename: "cover.png", MimeType: "image/png", Body: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)

	res, err := r.Resolve(ctx, Request{Mode: ModeArticle, Key: item.ID.String()})
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), `src="/blob/`+item.ID.String()+`/0"`)

	// The same picture is reachable as a raw image link.
	res, err = r.Resolve(ctx, Request{Mode: ModeImage, Key: item.ID.String()})
	require.NoError(t, err)
	defer res.Blob.Close()
	data, err := io.ReadAll(res.Blob)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", res.ContentType)
}

func TestResolve_Media(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	item, err := svc.AddMedia(ctx, intake.MediaRequest{
		Slug: "clip",
		Files: []intake.Upload{
			{Filename: "a.jpg", MimeType: "image/jpeg", Body: strings.NewReader("jpg")},
			{Filename: "b.mp4", MimeType: "video/mp4", Body: strings.NewReader("mp4")},
		},
	})
	require.NoError(t, err)

	res, err := r.Resolve(ctx, Request{Mode: ModeMedia, Key: "clip"})
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), `<img src="/blob/`+item.ID.String()+`/0"`)

	res, err = r.Resolve(ctx, Request{Mode: ModeMedia, Key: "clip", FileIndex: 1})
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), `<video src="/blob/`+item.ID.String()+`/1"`)

	_, err = r.Resolve(ctx, Request{Mode: ModeMedia, Key: "clip", FileIndex: 2})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResolve_Download(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	_, err := svc.AddArchive(ctx, intake.ArchiveRequest{
		Slug: "app",
		Name: "App",
		Files: []intake.Upload{
			{Filename: "app.apk", MimeType: "application/vnd.android.package-archive", Body: strings.NewReader("apk")},
			{Filename: "readme.txt", Body: strings.NewReader("read me")},
		},
	})
	require.NoError(t, err)

	res, err := r.Resolve(ctx, Request{Mode: ModeDownload, Key: "app", FileIndex: 1})
	require.NoError(t, err)
	defer res.Blob.Close()
	assert.True(t, res.Attachment)
	assert.Equal(t, "readme.txt", res.Filename)
	data, _ := io.ReadAll(res.Blob)
	assert.Equal(t, "read me", string(data))

	link, err := svc.AddLink(ctx, intake.LinkRequest{
		Name: "Free Fire Mod v2.1",
		Link: "https://mediafire.com/file/abc123/file.apk",
	})
	require.NoError(t, err)
	res, err = r.Resolve(ctx, Request{Mode: ModeDownload, Key: link.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "https://mediafire.com/file/abc123/file.apk", res.Redirect)
	assert.Nil(t, res.Blob)
}

func TestOpenFile_AnyKind(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	item, err := svc.AddMedia(ctx, intake.MediaRequest{
		Files: []intake.Upload{{Filename: "a.png", MimeType: "image/png", Body: strings.NewReader("png")}},
	})
	require.NoError(t, err)

	res, err := r.OpenFile(ctx, item.ID.String(), 0)
	require.NoError(t, err)
	res.Blob.Close()
	assert.False(t, res.Attachment)

	_, err = r.OpenFile(ctx, item.ID.String(), 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestShareLink_RoundTrips(t *testing.T) {
	r, svc := setup(t)
	ctx := context.Background()

	site, err := svc.AddWebsite(ctx, intake.WebsiteRequest{Slug: "demo", HTML: page})
	require.NoError(t, err)
	assert.Equal(t, "/?website=demo", ShareLink(site))

	app, err := svc.AddArchive(ctx, intake.ArchiveRequest{
		Files: []intake.Upload{{Filename: "a.zip", Body: strings.NewReader("zip")}},
	})
	require.NoError(t, err)
	link := ShareLink(app)
	assert.Equal(t, "/?download="+app.ID.String()+"&file=0", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	req, err := ParseQuery(u.Query())
	require.NoError(t, err)
	res, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	res.Blob.Close()
	assert.Equal(t, "a.zip", res.Filename)
}

func TestTextToHTML(t *testing.T) {
	assert.Equal(t, "a &amp; b<br>\nc", TextToHTML("a & b\r\nc"))
}
