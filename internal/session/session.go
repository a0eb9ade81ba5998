// Package session keeps half-finished bot submissions between messages.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("no pending upload")

// Store holds one PendingUpload per chat.
type Store interface {
	Save(ctx context.Context, chatID int64, up model.PendingUpload) error
	Load(ctx context.Context, chatID int64) (*model.PendingUpload, error)
	Delete(ctx context.Context, chatID int64) error
}

// RedisStore keeps states as JSON strings. A zero TTL keeps them until the
// flow completes.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(chatID int64) string {
	return "upload:state:" + strconv.FormatInt(chatID, 10)
}

func (s *RedisStore) Save(ctx context.Context, chatID int64, up model.PendingUpload) error {
	data, err := json.Marshal(up)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key(chatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save upload state: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, chatID int64) (*model.PendingUpload, error) {
	val, err := s.rdb.Get(ctx, key(chatID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, fmt.Errorf("load upload state: %w", err)
	}

	var up model.PendingUpload
	if err := json.Unmarshal(val, &up); err != nil {
		return nil, err
	}
	return &up, nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, key(chatID)).Err()
}

// MemoryStore is the single-process fallback used when no Redis is configured.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]entry
	ttl    time.Duration
	now    func() time.Time
}

type entry struct {
	up      model.PendingUpload
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{states: make(map[int64]entry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, chatID int64, up model.PendingUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{up: up}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.states[chatID] = e
	return nil
}

func (s *MemoryStore) Load(_ context.Context, chatID int64) (*model.PendingUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[chatID]
	if !ok {
		return nil, ErrNoSession
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.states, chatID)
		return nil, ErrNoSession
	}
	up := e.up
	return &up, nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}
