// Package session guarda el token del backend de cada estación.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNoSession la estación no tiene login activo
var ErrNoSession = errors.New("station has no active session")

// Session login de una estación: el token y la cuenta del backend a la que pertenece
type Session struct {
	Token     string `json:"token"`
	AccountID int    `json:"account_id"`
}

type TokenStore interface {
	Get(ctx context.Context, station string) (Session, error)
	Set(ctx context.Context, station string, sess Session) error
	Clear(ctx context.Context, station string) error
}

// redisTokenStore sobrevive reinicios del proceso
type redisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenStore(client *redis.Client, ttl time.Duration) TokenStore {
	return &redisTokenStore{client: client, ttl: ttl}
}

const keyPrefix = "session:token:"

// KeyPattern patrón SCAN de las sesiones en Redis
const KeyPattern = keyPrefix + "*"

func tokenKey(station string) string {
	return fmt.Sprintf("%s%s", keyPrefix, station)
}

func (s *redisTokenStore) Get(ctx context.Context, station string) (Session, error) {
	data, err := s.client.Get(ctx, tokenKey(station)).Result()
	if err == redis.Nil {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil || sess.Token == "" {
		// formato viejo o dañado: se pide login de nuevo
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *redisTokenStore) Set(ctx context.Context, station string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tokenKey(station), data, s.ttl).Err()
}

func (s *redisTokenStore) Clear(ctx context.Context, station string) error {
	return s.client.Del(ctx, tokenKey(station)).Err()
}

// MemoryTokenStore para estaciones sin Redis
type MemoryTokenStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{sessions: make(map[string]Session)}
}

func (s *MemoryTokenStore) Get(ctx context.Context, station string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[station]
	if !ok || sess.Token == "" {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *MemoryTokenStore) Set(ctx context.Context, station string, sess Session) error {
	s.mu.Lock()
	s.sessions[station] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context, station string) error {
	s.mu.Lock()
	delete(s.sessions, station)
	s.mu.Unlock()
	return nil
}
