package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects which payload a hosted item carries.
type Kind string

const (
	KindWebsite Kind = "website"
	KindArticle Kind = "article"
	KindMedia   Kind = "media"
	KindArchive Kind = "archive"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindWebsite, KindArticle, KindMedia, KindArchive}

// ParseKind accepts a kind name and the aliases used by shared links.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "website", "site", "project":
		return KindWebsite, nil
	case "article", "news":
		return KindArticle, nil
	case "media", "image", "imagelink", "video":
		return KindMedia, nil
	case "archive", "download", "apk", "file":
		return KindArchive, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// ArticleFormat controls how an article body is rendered.
type ArticleFormat string

const (
	FormatText     ArticleFormat = "text"
	FormatMarkdown ArticleFormat = "markdown"
	FormatHTML     ArticleFormat = "html"
)

// File references bytes kept in a blob store.
type File struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	BlobKey  string `json:"blob_key"`
}

// Website is an uploaded front-end project split into its three sources.
type Website struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Article is a static news/blog page.
type Article struct {
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	Format  ArticleFormat `json:"format,omitempty"`
	Image   *File         `json:"image,omitempty"`
	Source  string        `json:"source,omitempty"` // page an imported article was scraped from
	Excerpt string        `json:"excerpt,omitempty"`
}

// Media holds images or videos embedded inline when resolved.
type Media struct {
	Files []File `json:"files"`
}

// Archive is a downloadable file set or a remote download link.
type Archive struct {
	Files       []File `json:"files,omitempty"`
	Link        string `json:"link,omitempty"`
	SizeLabel   string `json:"size_label,omitempty"`
	Description string `json:"description,omitempty"`
}

// Item is a hosted catalog record. Exactly one payload pointer is set and it
// must match Kind.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug,omitempty"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Website *Website `json:"website,omitempty"`
	Article *Article `json:"article,omitempty"`
	Media   *Media   `json:"media,omitempty"`
	Archive *Archive `json:"archive,omitempty"`
}

var (
	ErrPayloadMismatch = errors.New("payload does not match kind")
	ErrInvalidSlug     = errors.New("slug must be 1-64 characters of a-z, 0-9, '-' or '_' and not a UUID")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidSlug reports whether s can be used as a slug. Strings that parse as
// a UUID are refused since lookups treat them as ids.
func ValidSlug(s string) bool {
	if !slugPattern.MatchString(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err != nil
}

// Validate checks the tagged-union invariant and the slug syntax.
func (it *Item) Validate() error {
	if it.Slug != "" && !ValidSlug(it.Slug) {
		return ErrInvalidSlug
	}
	set := 0
	for _, p := range []bool{it.Website != nil, it.Article != nil, it.Media != nil, it.Archive != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %d payloads set", ErrPayloadMismatch, set)
	}
	var ok bool
	switch it.Kind {
	case KindWebsite:
		ok = it.Website != nil
	case KindArticle:
		ok = it.Article != nil
	case KindMedia:
		ok = it.Media != nil && len(it.Media.Files) > 0
	case KindArchive:
		ok = it.Archive != nil && (len(it.Archive.Files) > 0 || it.Archive.Link != "")
	default:
		return fmt.Errorf("unknown kind %q", it.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPayloadMismatch, it.Kind)
	}
	return nil
}

// Files returns the blob-backed files attached to the item, in index order.
func (it *Item) Files() []File {
	switch {
	case it.Media != nil:
		return it.Media.Files
	case it.Archive != nil:
		return it.Archive.Files
	case it.Article != nil && it.Article.Image != nil:
		return []File{*it.Article.Image}
	}
	return nil
}

// File returns the file at index or false when the index is out of range.
func (it *Item) File(index int) (File, bool) {
	files := it.Files()
	if index < 0 || index >= len(files) {
		return File{}, false
	}
	return files[index], true
}

// IsVideo reports whether the file should be embedded with a video tag.
func (f File) IsVideo() bool {
	return strings.HasPrefix(f.MimeType, "video/")
}
