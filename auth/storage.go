package auth

import (
	"context"
	"sync"
	"time"

	"skmf.evalgo.org/db"
	"skmf.evalgo.org/resource"
)

// UserStore defines the interface for user persistence
type UserStore interface {
	// GetUser returns nil without an error when username is not registered.
	GetUser(ctx context.Context, username string) (*resource.User, error)
	CreateUser(ctx context.Context, username string, hash []byte, name string) (*resource.User, error)
}

// RevocationStore remembers revoked token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuditLogger defines audit logging interface
type AuditLogger interface {
	Log(ctx context.Context, entry *db.AuditEntry) error
}

var (
	_ RevocationStore = (*db.RedisRevocationStore)(nil)
	_ RevocationStore = (*MemoryRevocationStore)(nil)
	_ AuditLogger     = (*db.AuditStore)(nil)
	_ UserStore       = (*SPARQLUserStore)(nil)
)

// SPARQLUserStore keeps accounts in the users graph of the triple store.
type SPARQLUserStore struct {
	store resource.Store
}

// NewSPARQLUserStore returns a user store backed by store.
func NewSPARQLUserStore(store resource.Store) *SPARQLUserStore {
	return &SPARQLUserStore{store: store}
}

func (s *SPARQLUserStore) GetUser(ctx context.Context, username string) (*resource.User, error) {
	return resource.LoadUser(ctx, s.store, username)
}

func (s *SPARQLUserStore) CreateUser(ctx context.Context, username string, hash []byte, name string) (*resource.User, error) {
	return resource.CreateUser(ctx, s.store, username, hash, name)
}

// MemoryRevocationStore is a process local RevocationStore for development
// setups without redis.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore returns an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if until.After(now) {
		s.revoked[jti] = until
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[jti]
	return ok && exp.After(s.now()), nil
}
