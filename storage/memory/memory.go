// Package memory provides an in-memory implementation of storage.Storage,
// suitable for tests and single-instance deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oauthcore-oss/oauthcore/storage"
)

var _ storage.Storage = (*Storage)(nil)

// Storage is a mutex-guarded in-memory store. All compound operations run
// under a single lock, which is sufficient to satisfy the atomicity
// contracts of storage.Storage without a SQL backend.
type Storage struct {
	mu sync.Mutex

	clients   map[string]storage.Client
	users     map[string]storage.User
	usersByName map[string]string // username -> id
	authCodes map[string]storage.AuthCode
	tokens    map[string]storage.Token

	logger *slog.Logger
}

// New returns an empty in-memory store.
func New(logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		clients:     make(map[string]storage.Client),
		users:       make(map[string]storage.User),
		usersByName: make(map[string]string),
		authCodes:   make(map[string]storage.AuthCode),
		tokens:      make(map[string]storage.Token),
		logger:      logger,
	}
}

func (s *Storage) Close() error { return nil }

func (s *Storage) CreateClient(ctx context.Context, c storage.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.clients[c.ID] = c
	return nil
}

func (s *Storage) GetClient(ctx context.Context, id string) (storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return storage.Client{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Storage) CreateUser(ctx context.Context, u storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := s.usersByName[u.Username]; ok {
		return storage.ErrAlreadyExists
	}
	s.users[u.ID] = u
	s.usersByName[u.Username] = u.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByName[username]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Storage) CreateAuthCode(ctx context.Context, c storage.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authCodes[c.Code]; ok {
		return storage.ErrAlreadyExists
	}
	s.authCodes[c.Code] = c
	return nil
}

func (s *Storage) GetAuthCode(ctx context.Context, code string) (storage.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.authCodes[code]
	if !ok {
		return storage.AuthCode{}, storage.ErrNotFound
	}
	return c, nil
}

// ConsumeAuthCode is the single compare-and-swap operation the whole
// replay-safety story rests on: the lock makes the read-modify-write of
// the consumed flag indivisible with respect to every other goroutine.
func (s *Storage) ConsumeAuthCode(ctx context.Context, code string) (storage.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.authCodes[code]
	if !ok {
		return storage.AuthCode{}, storage.ErrNotFound
	}
	if c.Consumed {
		return storage.AuthCode{}, storage.ErrAlreadyConsumed
	}
	result := c
	c.Consumed = true
	s.authCodes[code] = c
	return result, nil
}

func (s *Storage) CreateToken(ctx context.Context, t storage.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.tokens[t.ID] = t
	return nil
}

func (s *Storage) GetToken(ctx context.Context, id string) (storage.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return storage.Token{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Storage) RevokeToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil // idempotent: unknown token is not an error
	}
	t.Revoked = true
	s.tokens[id] = t
	return nil
}

func (s *Storage) RevokeTokensByParentRefresh(ctx context.Context, refreshID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.ParentRefreshToken == refreshID {
			t.Revoked = true
			s.tokens[id] = t
		}
	}
	return nil
}

func (s *Storage) RevokeTokensByParentAuthCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.ParentAuthCode == code {
			t.Revoked = true
			s.tokens[id] = t
		}
	}
	return nil
}

// RotateRefreshToken revokes old and inserts next under the same lock
// acquisition, so no reader can observe one effect without the other.
func (s *Storage) RotateRefreshToken(ctx context.Context, old string, next storage.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[old]; ok {
		t.Revoked = true
		s.tokens[old] = t
	}
	if _, ok := s.tokens[next.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.tokens[next.ID] = next
	return nil
}

func (s *Storage) GarbageCollect(ctx context.Context, now time.Time) (storage.GCResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result storage.GCResult
	for id, c := range s.authCodes {
		if now.After(c.ExpiresAt) {
			delete(s.authCodes, id)
			result.AuthCodes++
		}
	}
	for id, t := range s.tokens {
		if now.After(t.ExpiresAt) {
			delete(s.tokens, id)
			result.Tokens++
		}
	}
	s.logger.Debug("garbage collection complete", "auth_codes", result.AuthCodes, "tokens", result.Tokens)
	return result, nil
}
