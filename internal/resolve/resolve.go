package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeWebsite  Mode = "website"
	ModeArticle  Mode = "article"
	ModeMedia    Mode = "media"
	ModeImage    Mode = "image"
	ModeDownload Mode = "download"
)

var (
	// ErrNoRequest means the query carried no resolution parameters.
	ErrNoRequest  = errors.New("no resolution parameters")
	ErrBadRequest = errors.New("bad resolution request")
)

// ParseMode accepts the mode tags used across shared links.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "website", "site", "project":
		return ModeWebsite, nil
	case "article", "news":
		return ModeArticle, nil
	case "media", "video":
		return ModeMedia, nil
	case "image", "imagelink", "raw":
		return ModeImage, nil
	case "download", "archive", "apk", "file":
		return ModeDownload, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrBadRequest, s)
}

// Request identifies what a shared link points at.
type Request struct {
	Mode      Mode
	Key       string
	FileIndex int
}

// dedicated are the one-parameter link styles, checked in order.
var dedicated = []struct {
	param string
	mode  Mode
}{
	{"website", ModeWebsite},
	{"news", ModeArticle},
	{"article", ModeArticle},
	{"media", ModeMedia},
	{"imagelink", ModeImage},
	{"download", ModeDownload},
}

// ParseQuery reads either mode=&id= or one of the dedicated parameters
// (website=, news=, download=&file=, imagelink=&file=).
func ParseQuery(q url.Values) (Request, error) {
	var req Request
	switch {
	case q.Get("mode") != "":
		mode, err := ParseMode(q.Get("mode"))
		if err != nil {
			return Request{}, err
		}
		req = Request{Mode: mode, Key: q.Get("id")}
	default:
		for _, d := range dedicated {
			if v := q.Get(d.param); v != "" {
				req = Request{Mode: d.mode, Key: v}
				break
			}
		}
		if req.Mode == "" {
			return Request{}, ErrNoRequest
		}
	}

	if strings.TrimSpace(req.Key) == "" {
		return Request{}, fmt.Errorf("%w: missing id", ErrBadRequest)
	}
	if raw := q.Get("file"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return Request{}, fmt.Errorf("%w: invalid file index %q", ErrBadRequest, raw)
		}
		req.FileIndex = idx
	}
	return req, nil
}

// Result is a rendered response. Exactly one of Body, Blob or Redirect is set.
type Result struct {
	Item        *model.Item
	ContentType string
	Body        []byte
	Blob        io.ReadCloser
	Size        int64
	// Attachment asks the client to save Blob under Filename.
	Attachment bool
	Filename   string
	Redirect   string
	// Missing lists website anchors that were not found.
	Missing []string
}

// Resolver maps shared links back to stored content.
type Resolver struct {
	store    store.Store
	blobs    store.BlobStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
	markdown goldmark.Markdown
	// BlobURL builds the URL embedded pages use for file bytes.
	BlobURL func(id string, index int) string
}

func NewResolver(st store.Store, blobs store.BlobStore, logger *zap.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		store:    st,
		blobs:    blobs,
		logger:   logger,
		metrics:  m,
		markdown: goldmark.New(),
		BlobURL: func(id string, index int) string {
			return "/blob/" + url.PathEscape(id) + "/" + strconv.Itoa(index)
		},
	}
}

// ShareLink returns the root-relative link that resolves item, preferring
// its slug.
func ShareLink(item *model.Item) string {
	key := item.Slug
	if key == "" {
		key = item.ID.String()
	}
	q := url.Values{}
	switch item.Kind {
	case model.KindWebsite:
		q.Set("website", key)
	case model.KindArticle:
		q.Set("news", key)
	case model.KindMedia:
		q.Set("mode", string(ModeMedia))
		q.Set("id", key)
	case model.KindArchive:
		q.Set("download", key)
		if len(item.Files()) > 0 {
			q.Set("file", "0")
		}
	}
	return "/?" + q.Encode()
}

// ModeForKind is the resolution mode a kind's pretty link uses.
func ModeForKind(kind model.Kind) Mode {
	switch kind {
	case model.KindWebsite:
		return ModeWebsite
	case model.KindArticle:
		return ModeArticle
	case model.KindMedia:
		return ModeMedia
	}
	return ModeDownload
}

// kindsFor lists which catalog kinds a mode may resolve against.
func kindsFor(mode Mode) []model.Kind {
	switch mode {
	case ModeWebsite:
		return []model.Kind{model.KindWebsite}
	case ModeArticle:
		return []model.Kind{model.KindArticle}
	case ModeMedia:
		return []model.Kind{model.KindMedia}
	case ModeImage:
		return []model.Kind{model.KindMedia, model.KindArticle, model.KindArchive}
	case ModeDownload:
		return []model.Kind{model.KindArchive, model.KindMedia, model.KindArticle}
	}
	return nil
}

func (r *Resolver) lookup(ctx context.Context, mode Mode, key string) (*model.Item, error) {
	for _, kind := range kindsFor(mode) {
		item, err := r.store.Get(ctx, kind, key)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, store.ErrNotFound
}

// Resolve loads the item behind req and renders it. Unresolvable links return
// store.ErrNotFound and nothing else.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	res, err := r.resolve(ctx, req)
	switch {
	case err == nil:
		r.metrics.Resolved(string(req.Mode), "ok")
	case errors.Is(err, store.ErrNotFound):
		r.metrics.Resolved(string(req.Mode), "not_found")
	default:
		r.metrics.Resolved(string(req.Mode), "error")
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Result, error) {
	item, err := r.lookup(ctx, req.Mode, req.Key)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeWebsite:
		return r.renderWebsite(item), nil
	case ModeArticle:
		return r.renderArticle(item)
	case ModeMedia:
		return r.renderMedia(item, req.FileIndex)
	case ModeImage:
		return r.openFile(ctx, item, req.FileIndex, false)
	case ModeDownload:
		if item.Archive != nil && len(item.Archive.Files) == 0 && item.Archive.Link != "" {
			return &Result{Item: item, Redirect: item.Archive.Link}, nil
		}
		return r.openFile(ctx, item, req.FileIndex, true)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrBadRequest, req.Mode)
}

// OpenFile streams file index of the item with id key, any kind.
func (r *Resolver) OpenFile(ctx context.Context, key string, index int) (*Result, error) {
	item, err := r.store.Get(ctx, "", key)
	if err != nil {
		return nil, err
	}
	return r.openFile(ctx, item, index, false)
}

func (r *Resolver) renderWebsite(item *model.Item) *Result {
	c := Compose(*item.Website, item.Name)
	if len(c.Missing) > 0 {
		r.logger.Warn("Website is missing insertion points",
			zap.String("id", item.ID.String()),
			zap.Strings("missing", c.Missing))
	}
	return &Result{
		Item:        item,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(c.HTML),
		Missing:     c.Missing,
	}
}

func (r *Resolver) articleBody(a *model.Article) (template.HTML, error) {
	switch a.Format {
	case model.FormatMarkdown:
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(a.Body), &buf); err != nil {
			return "", err
		}
		return template.HTML(buf.String()), nil
	case model.FormatHTML:
		// Only the import worker stores html bodies; the HTTP API refuses them
		return template.HTML(a.Body), nil
	default:
		return template.HTML(TextToHTML(a.Body)), nil
	}
}

// TextToHTML escapes s and turns newlines into <br> tags.
func TextToHTML(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>\n")
}

func (r *Resolver) renderArticle(item *model.Item) (*Result, error) {
	a := item.Article
	body, err := r.articleBody(a)
	if err != nil {
		return nil, fmt.Errorf("render article %s: %w", item.ID, err)
	}

	data := struct {
		Title    string
		Body     template.HTML
		Date     string
		Category string
		Source   string
		ImageURL string
	}{
		Title:    a.Title,
		Body:     body,
		Date:     item.CreatedAt.Format("Jan 02, 2006"),
		Category: item.Category,
		Source:   a.Source,
	}
	if a.Image != nil {
		data.ImageURL = r.BlobURL(item.ID.String(), 0)
	}

	var buf bytes.Buffer
	if err := articleTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return &Result{Item: item, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

func (r *Resolver) renderMedia(item *model.Item, index int) (*Result, error) {
	f, ok := item.File(index)
	if !ok {
		return nil, store.ErrNotFound
	}
	data := struct {
		Name     string
		URL      string
		MimeType string
		Video    bool
	}{
		Name:     f.Name,
		URL:      r.BlobURL(item.ID.String(), index),
		MimeType: f.MimeType,
		Video:    f.IsVideo(),
	}

	var buf bytes.Buffer
	if err := mediaTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return &Result{Item: item, ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

func (r *Resolver) openFile(ctx context.Context, item *model.Item, index int, attachment bool) (*Result, error) {
	f, ok := item.File(index)
	if !ok {
		return nil, store.ErrNotFound
	}
	rc, err := r.blobs.OpenBlob(ctx, f.BlobKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("Blob missing for item", zap.String("id", item.ID.String()), zap.String("key", f.BlobKey))
		}
		return nil, err
	}
	ct := f.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Result{
		Item:        item,
		ContentType: ct,
		Blob:        rc,
		Size:        f.Size,
		Attachment:  attachment,
		Filename:    f.Name,
	}, nil
}
