package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is the GORM implementation of Store
type GormStore struct {
	db     *gorm.DB
	tokens TokenRepository
}

// StoreOption customizes a GormStore
type StoreOption func(*GormStore)

// WithTokenRepository replaces the database token table with an external
// token store such as Redis. External stores do not join transactions.
func WithTokenRepository(tokens TokenRepository) StoreOption {
	return func(s *GormStore) {
		s.tokens = tokens
	}
}

// NewStore creates a Store over db
func NewStore(db *gorm.DB, opts ...StoreOption) *GormStore {
	s := &GormStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for health checks
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Users() UserRepository { return NewUserRepository(s.db) }

func (s *GormStore) Tenants() TenantRepository { return NewTenantRepository(s.db) }

func (s *GormStore) Memberships() MembershipRepository { return NewMembershipRepository(s.db) }

func (s *GormStore) Tokens() TokenRepository { return s.tokensFor(s.db) }

func (s *GormStore) Scoped(tenantID string) TenantScope { return NewTenantScope(s.db, tenantID) }

// WithTx runs fn with repositories bound to a single transaction
func (s *GormStore) WithTx(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx, store: s})
	})
}

func (s *GormStore) tokensFor(db *gorm.DB) TokenRepository {
	if s.tokens != nil {
		return s.tokens
	}
	return NewTokenRepository(db)
}

type txRepositories struct {
	tx    *gorm.DB
	store *GormStore
}

func (r *txRepositories) Users() UserRepository { return NewUserRepository(r.tx) }

func (r *txRepositories) Tenants() TenantRepository { return NewTenantRepository(r.tx) }

func (r *txRepositories) Memberships() MembershipRepository { return NewMembershipRepository(r.tx) }

func (r *txRepositories) Tokens() TokenRepository { return r.store.tokensFor(r.tx) }

func (r *txRepositories) Scoped(tenantID string) TenantScope { return NewTenantScope(r.tx, tenantID) }
