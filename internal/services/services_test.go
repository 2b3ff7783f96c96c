package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/multitenant-task-api/internal/auth"
	"github.com/yukikurage/multitenant-task-api/internal/database"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

func newTestStore(t *testing.T) *repository.GormStore {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return repository.NewStore(db)
}

func newTestServices(t *testing.T, opts Options) (*Services, *repository.GormStore) {
	t.Helper()
	store := newTestStore(t)
	svc := New(store, auth.NewBcryptHasher(bcrypt.MinCost), auth.NewTokenCodec("test-secret", 0), opts)
	return svc, store
}

func registerTenant(t *testing.T, svc *Services, tenantName, email string) *AuthResult {
	t.Helper()
	result, err := svc.Auth.Register(context.Background(), RegisterInput{
		TenantName: tenantName,
		Name:       email,
		Email:      email,
		Password:   testPassword,
	})
	require.NoError(t, err)
	return result
}

func tenantContextFor(t *testing.T, svc *Services, user *models.User, tenantID string) *TenantContext {
	t.Helper()
	tc, err := svc.Contexts.For(context.Background(), user, tenantID)
	require.NoError(t, err)
	return tc
}

func requireKind(t *testing.T, err error, kind apierrors.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apierrors.KindOf(err), err.Error())
}
