package store

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/kashifkhan1020/KamiNewMods/internal/model"
)

var (
	ErrNotFound      = errors.New("content not found")
	ErrDuplicateSlug = errors.New("slug already taken")
	ErrDuplicateID   = errors.New("id already exists")
)

// Store is the hosted item catalog. It performs no authorization; callers
// gate Delete themselves.
type Store interface {
	Put(ctx context.Context, item *model.Item) error
	Get(ctx context.Context, kind model.Kind, key string) (*model.Item, error)
	List(ctx context.Context, kind model.Kind) ([]model.Item, error)
	Delete(ctx context.Context, kind model.Kind, id uuid.UUID) (*model.Item, error)
}

// BlobStore keeps the raw bytes behind model.File records.
type BlobStore interface {
	PutBlob(ctx context.Context, key string, r io.Reader) (int64, error)
	OpenBlob(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteBlob(ctx context.Context, key string) error
}
