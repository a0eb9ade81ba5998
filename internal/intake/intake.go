package intake

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/kashifkhan1020/KamiNewMods/internal/metrics"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrIO            = errors.New("io failure")
)

// Upload is one incoming file.
type Upload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

type LinkRequest struct {
	Slug        string
	Name        string
	Category    string
	SizeLabel   string
	Description string
	Link        string
}

type ArchiveRequest struct {
	Slug        string
	Name        string
	Category    string
	Description string
	Files       []Upload
}

// StoredFileRequest records a file whose bytes are already in the blob store.
type StoredFileRequest struct {
	Slug        string
	Name        string
	Category    string
	Description string
	File        model.File
}

type WebsiteRequest struct {
	Slug string
	Name string
	HTML string
	CSS  string
	JS   string
}

type ArticleRequest struct {
	Slug     string
	Category string
	Title    string
	Body     string
	Format   model.ArticleFormat
	Source   string
	Excerpt  string
	Image    *Upload
}

type MediaRequest struct {
	Slug     string
	Name     string
	Category string
	Files    []Upload
}

// Service turns raw submissions into catalog records.
type Service struct {
	store   store.Store
	blobs   store.BlobStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewService(st store.Store, blobs store.BlobStore, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{store: st, blobs: blobs, logger: logger, metrics: m}
}

// Blobs exposes the blob store the service writes to.
func (s *Service) Blobs() store.BlobStore {
	return s.blobs
}

// AddLink records a remote download link verbatim; reachability is not checked.
func (s *Service) AddLink(ctx context.Context, req LinkRequest) (*model.Item, error) {
	link := strings.TrimSpace(req.Link)
	if link == "" {
		return nil, fmt.Errorf("%w: link is required", ErrInvalidFormat)
	}
	name := req.Name
	if name == "" {
		name = linkBase(link)
	}
	item := &model.Item{
		Kind:     model.KindArchive,
		Slug:     req.Slug,
		Name:     name,
		Category: req.Category,
		Archive: &model.Archive{
			Link:        link,
			SizeLabel:   req.SizeLabel,
			Description: req.Description,
		},
	}
	return item, s.put(ctx, item, nil)
}

// StoreUpload streams one upload into the blob store.
func (s *Service) StoreUpload(ctx context.Context, up Upload) (model.File, error) {
	name := cleanFilename(up.Filename)
	if name == "" {
		return model.File{}, fmt.Errorf("%w: filename is required", ErrInvalidFormat)
	}
	if up.Body == nil {
		return model.File{}, fmt.Errorf("%w: %s has no content", ErrInvalidFormat, name)
	}

	body := bufio.NewReader(up.Body)
	mimeType := up.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detectMime(name, body)
	}

	key := uuid.NewString() + "/" + name
	n, err := s.blobs.PutBlob(ctx, key, body)
	if err != nil {
		return model.File{}, fmt.Errorf("%w: store %s: %w", ErrIO, name, err)
	}
	return model.File{Name: name, MimeType: mimeType, Size: n, BlobKey: key}, nil
}

func (s *Service) storeAll(ctx context.Context, ups []Upload) ([]model.File, error) {
	files := make([]model.File, 0, len(ups))
	for _, up := range ups {
		f, err := s.StoreUpload(ctx, up)
		if err != nil {
			s.releaseBlobs(ctx, files)
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// AddArchive stores the uploaded files and records them as one downloadable item.
func (s *Service) AddArchive(ctx context.Context, req ArchiveRequest) (*model.Item, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no file selected", ErrInvalidFormat)
	}
	files, err := s.storeAll(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	name := req.Name
	if name == "" {
		name = files[0].Name
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	item := &model.Item{
		Kind:     model.KindArchive,
		Slug:     req.Slug,
		Name:     name,
		Category: req.Category,
		Archive: &model.Archive{
			Files:       files,
			SizeLabel:   FormatBytes(total),
			Description: req.Description,
		},
	}
	return item, s.put(ctx, item, files)
}

// AddStoredFile records an already stored file, used by the two-step bot flow.
func (s *Service) AddStoredFile(ctx context.Context, req StoredFileRequest) (*model.Item, error) {
	if req.File.BlobKey == "" {
		return nil, fmt.Errorf("%w: file has no blob", ErrInvalidFormat)
	}
	name := req.Name
	if name == "" {
		name = req.File.Name
	}
	item := &model.Item{
		Kind:     model.KindArchive,
		Slug:     req.Slug,
		Name:     name,
		Category: req.Category,
		Archive: &model.Archive{
			Files:       []model.File{req.File},
			SizeLabel:   FormatBytes(req.File.Size),
			Description: req.Description,
		},
	}
	// The blob belongs to the pending upload until the record exists, so a
	// failed put leaves it for a retry.
	return item, s.put(ctx, item, nil)
}

func (s *Service) AddWebsite(ctx context.Context, req WebsiteRequest) (*model.Item, error) {
	if strings.TrimSpace(req.HTML+req.CSS+req.JS) == "" {
		return nil, fmt.Errorf("%w: enter some code to combine", ErrInvalidFormat)
	}
	name := req.Name
	if name == "" {
		name = "Untitled project"
	}
	item := &model.Item{
		Kind: model.KindWebsite,
		Slug: req.Slug,
		Name: name,
		Website: &model.Website{
			HTML: req.HTML,
			CSS:  req.CSS,
			JS:   req.JS,
		},
	}
	return item, s.put(ctx, item, nil)
}

func (s *Service) AddArticle(ctx context.Context, req ArticleRequest) (*model.Item, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidFormat)
	}
	format := req.Format
	switch format {
	case "":
		format = model.FormatText
	case model.FormatText, model.FormatMarkdown, model.FormatHTML:
	default:
		return nil, fmt.Errorf("%w: unknown article format %q", ErrInvalidFormat, format)
	}

	article := &model.Article{
		Title:   title,
		Body:    req.Body,
		Format:  format,
		Source:  req.Source,
		Excerpt: req.Excerpt,
	}
	var stored []model.File
	if req.Image != nil {
		img, err := s.StoreUpload(ctx, *req.Image)
		if err != nil {
			return nil, err
		}
		article.Image = &img
		stored = append(stored, img)
	}

	item := &model.Item{
		Kind:     model.KindArticle,
		Slug:     req.Slug,
		Name:     title,
		Category: req.Category,
		Article:  article,
	}
	return item, s.put(ctx, item, stored)
}

func (s *Service) AddMedia(ctx context.Context, req MediaRequest) (*model.Item, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no file selected", ErrInvalidFormat)
	}
	files, err := s.storeAll(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if !strings.HasPrefix(f.MimeType, "image/") && !strings.HasPrefix(f.MimeType, "video/") {
			s.releaseBlobs(ctx, files)
			return nil, fmt.Errorf("%w: %s is not an image or video", ErrInvalidFormat, f.Name)
		}
	}
	name := req.Name
	if name == "" {
		name = files[0].Name
	}
	item := &model.Item{
		Kind:     model.KindMedia,
		Slug:     req.Slug,
		Name:     name,
		Category: req.Category,
		Media:    &model.Media{Files: files},
	}
	return item, s.put(ctx, item, files)
}

// Remove deletes a record and its blobs. Callers must have passed the admin gate.
func (s *Service) Remove(ctx context.Context, kind model.Kind, id uuid.UUID) (*model.Item, error) {
	removed, err := s.store.Delete(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.releaseBlobs(ctx, removed.Files())
	s.metrics.ItemDeleted(string(removed.Kind))
	s.logger.Info("Item deleted", zap.String("id", id.String()), zap.String("kind", string(removed.Kind)))
	return removed, nil
}

// put writes item, releasing stored blobs when the record cannot be created.
func (s *Service) put(ctx context.Context, item *model.Item, stored []model.File) error {
	err := s.store.Put(ctx, item)
	if err != nil {
		s.releaseBlobs(ctx, stored)
		if errors.Is(err, model.ErrInvalidSlug) || errors.Is(err, model.ErrPayloadMismatch) {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		if errors.Is(err, store.ErrDuplicateSlug) || errors.Is(err, store.ErrDuplicateID) {
			return err
		}
		return fmt.Errorf("%w: save item: %w", ErrIO, err)
	}
	s.metrics.ItemCreated(string(item.Kind))
	s.logger.Info("Item created",
		zap.String("id", item.ID.String()),
		zap.String("kind", string(item.Kind)),
		zap.String("slug", item.Slug))
	return nil
}

func (s *Service) releaseBlobs(ctx context.Context, files []model.File) {
	for _, f := range files {
		if err := s.blobs.DeleteBlob(ctx, f.BlobKey); err != nil {
			s.logger.Warn("Failed to delete blob", zap.String("key", f.BlobKey), zap.Error(err))
		}
	}
}

// ReleaseFile drops a stored file that never made it into a record.
func (s *Service) ReleaseFile(ctx context.Context, f model.File) {
	s.releaseBlobs(ctx, []model.File{f})
}

func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

func detectMime(name string, body *bufio.Reader) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	head, _ := body.Peek(512)
	return http.DetectContentType(head)
}

func linkBase(link string) string {
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	return link
}
