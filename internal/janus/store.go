package janus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connection is a stream published into a room.
type Connection struct {
	Room      int64     `json:"room"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	SessionID int64     `json:"session_id"`
	HandleID  int64     `json:"handle_id"`
	PeerID    string    `json:"peer_id"`
	Joined    time.Time `json:"joined"`
}

// Key identifies a connection by room, stream URL and display name.
func Key(room int64, url, name string) string {
	return fmt.Sprintf("%d_%s_%s", room, url, name)
}

func (c Connection) Key() string {
	return Key(c.Room, c.URL, c.Name)
}

// Store tracks published connections so callers can swap storage backends.
type Store interface {
	Put(ctx context.Context, c Connection) error
	Get(ctx context.Context, key string) (Connection, bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Connection, error)
}

// MemoryStore keeps connections in process.
type MemoryStore struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conns: make(map[string]Connection)}
}

func (s *MemoryStore) Put(_ context.Context, c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c.Key()] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Connection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[key]
	return c, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	sortConnections(out)
	return out, nil
}

// RedisStore implements Store using a Redis hash of JSON values.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore builds a store backed by Redis. Prefix is optional (e.g., "rtcstreamer").
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "rtcstreamer"
	}
	return &RedisStore{
		rdb: rdb,
		key: fmt.Sprintf("%s:janus:connections", p),
	}
}

func (s *RedisStore) Put(ctx context.Context, c Connection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key, c.Key(), data).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Connection, bool, error) {
	var c Connection
	data, err := s.rdb.HGet(ctx, s.key, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, err
	}
	return c, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.HDel(ctx, s.key, key).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]Connection, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(vals))
	for k, v := range vals {
		var c Connection
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, fmt.Errorf("decode connection %s: %w", k, err)
		}
		out = append(out, c)
	}
	sortConnections(out)
	return out, nil
}

// Reset removes every stored connection.
func (s *RedisStore) Reset(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

func sortConnections(cs []Connection) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Key() < cs[j].Key() })
}
