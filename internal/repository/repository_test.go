package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/multitenant-task-api/internal/database"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedTenant(t *testing.T, store Store, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: slug, Slug: slug}
	require.NoError(t, store.Tenants().Create(context.Background(), tenant))
	return tenant
}

func seedUser(t *testing.T, store Store, email string) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email, PasswordHash: "hashed"}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func TestMembershipRepository_AttachTwiceConflicts(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	tenant := seedTenant(t, store, "acme")
	user := seedUser(t, store, "a@example.com")

	_, err := store.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleUser)
	require.NoError(t, err)

	_, err = store.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleAdmin)
	require.ErrorIs(t, err, ErrMembershipExists)

	count, err := store.Memberships().CountByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// Detaching a missing edge is a no-op
	require.NoError(t, store.Memberships().Detach(ctx, user.ID, "missing"))
}

func TestMembershipRepository_RolesArePerTenant(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	a := seedTenant(t, store, "a")
	b := seedTenant(t, store, "b")
	user := seedUser(t, store, "u@example.com")

	_, err := store.Memberships().Attach(ctx, user.ID, a.ID, models.RoleAdmin)
	require.NoError(t, err)
	_, err = store.Memberships().Attach(ctx, user.ID, b.ID, models.RoleUser)
	require.NoError(t, err)

	inA, err := store.Memberships().Find(ctx, user.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, inA.Role)

	inB, err := store.Memberships().Find(ctx, user.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, inB.Role)

	memberships, err := store.Memberships().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 2)
}

func TestTenantRepository_SlugExistsExcludesSelf(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	tenant := seedTenant(t, store, "acme")

	exists, err := store.Tenants().SlugExists(ctx, "acme", "")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.Tenants().SlugExists(ctx, "acme", tenant.ID)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestTenantRepository_DuplicateSlugIsTranslated(t *testing.T) {
	store := NewStore(newTestDB(t))

	seedTenant(t, store, "acme")
	err := store.Tenants().Create(context.Background(), &models.Tenant{Name: "Other", Slug: "acme"})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestTenantRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	tenant := seedTenant(t, store, "acme")
	other := seedTenant(t, store, "other")
	user := seedUser(t, store, "u@example.com")

	_, err := store.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleAdmin)
	require.NoError(t, err)
	role := models.RoleAdmin
	require.NoError(t, store.Users().SetCurrentTenant(ctx, user.ID, &tenant.ID, &role))

	project := &models.Project{Name: "Launch"}
	require.NoError(t, store.Scoped(tenant.ID).Projects().Create(ctx, project))
	require.NoError(t, store.Scoped(tenant.ID).Tasks().Create(ctx, &models.Task{ProjectID: project.ID, Title: "Ship"}))

	otherProject := &models.Project{Name: "Kept"}
	require.NoError(t, store.Scoped(other.ID).Projects().Create(ctx, otherProject))

	err = store.WithTx(ctx, func(repos Repositories) error {
		return repos.Tenants().Delete(ctx, tenant.ID)
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Where("tenant_id = ?", tenant.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Project{}).Where("tenant_id = ?", tenant.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Membership{}).Where("tenant_id = ?", tenant.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Project{}).Where("tenant_id = ?", other.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	reloaded, err := store.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.CurrentTenantID)
	require.Nil(t, reloaded.ActiveRole)
}

func TestGormTokenRepository_Lifecycle(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	now := time.Now()

	user := seedUser(t, store, "u@example.com")
	first := &models.AccessToken{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	second := &models.AccessToken{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	expired := &models.AccessToken{ID: uuid.NewString(), UserID: user.ID, ExpiresAt: now.Add(-time.Minute)}
	for _, tok := range []*models.AccessToken{first, second, expired} {
		require.NoError(t, store.Tokens().Create(ctx, tok))
	}

	_, err := store.Tokens().FindActive(ctx, expired.ID, now)
	require.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Tokens().Revoke(ctx, first.ID, now))
	_, err = store.Tokens().FindActive(ctx, first.ID, now)
	require.ErrorIs(t, err, ErrTokenNotFound)

	found, err := store.Tokens().FindActive(ctx, second.ID, now)
	require.NoError(t, err)
	require.Equal(t, user.ID, found.UserID)
	require.Nil(t, found.LastUsedAt)

	require.NoError(t, store.Tokens().Touch(ctx, second.ID, now))
	found, err = store.Tokens().FindActive(ctx, second.ID, now)
	require.NoError(t, err)
	require.NotNil(t, found.LastUsedAt)
	require.WithinDuration(t, now, *found.LastUsedAt, time.Second)

	require.NoError(t, store.Tokens().RevokeAllForUser(ctx, user.ID, now))
	_, err = store.Tokens().FindActive(ctx, second.ID, now)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestUserRepository_DeleteRemovesEdges(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	tenant := seedTenant(t, store, "acme")
	user := seedUser(t, store, "u@example.com")
	_, err := store.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleUser)
	require.NoError(t, err)

	project := &models.Project{Name: "P"}
	require.NoError(t, store.Scoped(tenant.ID).Projects().Create(ctx, project))
	task := &models.Task{ProjectID: project.ID, Title: "T", AssignedTo: &user.ID}
	require.NoError(t, store.Scoped(tenant.ID).Tasks().Create(ctx, task))

	require.NoError(t, store.WithTx(ctx, func(repos Repositories) error {
		return repos.Users().Delete(ctx, user.ID)
	}))

	_, err = store.Users().FindByID(ctx, user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	reloaded, err := store.Scoped(tenant.ID).Tasks().FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.AssignedTo)
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(repos Repositories) error {
		if err := repos.Tenants().Create(ctx, &models.Tenant{Name: "Acme", Slug: "acme"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Tenants().FindBySlug(ctx, "acme")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStore_WithTxRollsBackOnMembershipFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), database.GormConfig(logger.Silent))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `tenants`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `memberships`")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "tenant_id", "role"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `memberships`")).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	store := NewStore(db)
	ctx := context.Background()
	err = store.WithTx(ctx, func(repos Repositories) error {
		tenant := &models.Tenant{Name: "Acme", Slug: "acme"}
		if err := repos.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		user := &models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "hashed"}
		if err := repos.Users().Create(ctx, user); err != nil {
			return err
		}
		_, err := repos.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleAdmin)
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
