package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerStore keeps the catalog in an embedded Badger database.
//
// Keys:
//
//	item:<id>             JSON encoded model.Item
//	kind:<kind>:<id>      per-kind index, empty value
//	slug:<kind>:<slug>    slug index, value is the id
//	blob:<key>            raw file bytes (see BadgerStore.PutBlob)
type BadgerStore struct {
	db  *badger.DB
	mu  sync.Mutex
	now func() time.Time
}

// OpenBadger opens (or creates) the database at path.
// Pass path="" to run fully in memory.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Silence default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db, now: time.Now}
}

// Close releases the database lock.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RunGC compacts the value log; badger returns ErrNoRewrite when there is
// nothing to collect.
func (s *BadgerStore) RunGC() error {
	err := s.db.RunValueLogGC(0.7)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

func itemKey(id uuid.UUID) []byte {
	return []byte("item:" + id.String())
}

func kindKey(kind model.Kind, id uuid.UUID) []byte {
	return []byte("kind:" + string(kind) + ":" + id.String())
}

func slugKey(kind model.Kind, slug string) []byte {
	return []byte("slug:" + string(kind) + ":" + slug)
}

func blobKey(key string) []byte {
	return []byte("blob:" + key)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// Put validates and stores a new item, assigning ID and CreatedAt. The
// caller's item is only updated when the write commits.
func (s *BadgerStore) Put(ctx context.Context, item *model.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *item
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = s.now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, itemKey(rec.ID))
		if err != nil {
			return err
		}
		if found {
			return ErrDuplicateID
		}

		if rec.Slug != "" {
			found, err := exists(txn, slugKey(rec.Kind, rec.Slug))
			if err != nil {
				return err
			}
			if found {
				return ErrDuplicateSlug
			}
			if err := txn.Set(slugKey(rec.Kind, rec.Slug), []byte(rec.ID.String())); err != nil {
				return err
			}
		}

		if err := txn.Set(itemKey(rec.ID), data); err != nil {
			return err
		}
		return txn.Set(kindKey(rec.Kind, rec.ID), nil)
	})
	if err != nil {
		return err
	}

	*item = rec
	return nil
}

func readItem(txn *badger.Txn, id uuid.UUID) (*model.Item, error) {
	entry, err := txn.Get(itemKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	var item model.Item
	err = entry.Value(func(val []byte) error {
		return json.Unmarshal(val, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Get resolves key as an id when it parses as a UUID, otherwise through the
// slug index of kind. An empty kind matches any kind for id lookups.
func (s *BadgerStore) Get(ctx context.Context, kind model.Kind, key string) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var item *model.Item
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := uuid.Parse(key)
		if err != nil {
			if kind == "" || key == "" {
				return ErrNotFound
			}
			entry, err := txn.Get(slugKey(kind, key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			} else if err != nil {
				return err
			}
			raw, err := entry.ValueCopy(nil)
			if err != nil {
				return err
			}
			if id, err = uuid.ParseBytes(raw); err != nil {
				return fmt.Errorf("corrupt slug index for %q: %w", key, err)
			}
		}

		item, err = readItem(txn, id)
		if err != nil {
			return err
		}
		if kind != "" && item.Kind != kind {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// List returns the items of kind, or of every kind when kind is empty,
// newest first.
func (s *BadgerStore) List(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte("item:")
	if kind != "" {
		prefix = []byte("kind:" + string(kind) + ":")
	}

	items := []model.Item{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			id, err := uuid.ParseBytes(k[bytes.LastIndexByte(k, ':')+1:])
			if err != nil {
				continue
			}
			item, err := readItem(txn, id)
			if err != nil {
				return err
			}
			items = append(items, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Delete removes an item and its indexes, returning the removed record so the
// caller can release its blobs.
func (s *BadgerStore) Delete(ctx context.Context, kind model.Kind, id uuid.UUID) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed *model.Item
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := readItem(txn, id)
		if err != nil {
			return err
		}
		if kind != "" && item.Kind != kind {
			return ErrNotFound
		}
		if item.Slug != "" {
			if err := txn.Delete(slugKey(item.Kind, item.Slug)); err != nil {
				return err
			}
		}
		if err := txn.Delete(kindKey(item.Kind, id)); err != nil {
			return err
		}
		removed = item
		return txn.Delete(itemKey(id))
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// PutBlob stores r under key inside the catalog database.
func (s *BadgerStore) PutBlob(ctx context.Context, key string, r io.Reader) (int64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, errors.New("blob key is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(key), data)
	})
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// OpenBlob returns the bytes stored under key.
func (s *BadgerStore) OpenBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(blobKey(key))
		if err != nil {
			return err
		}
		data, err = entry.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// DeleteBlob removes key; missing keys are not an error.
func (s *BadgerStore) DeleteBlob(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blobKey(key))
	})
}
