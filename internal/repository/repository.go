package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/models"
)

var (
	// ErrMembershipExists is returned when a (user, tenant) pair is attached twice.
	ErrMembershipExists = errors.New("membership repository: membership already exists")
	// ErrTokenNotFound is returned when a token id is unknown, expired or revoked.
	ErrTokenNotFound = errors.New("token repository: token not found")
)

// Repositories is the set of repositories bound to one database handle or
// transaction.
type Repositories interface {
	Users() UserRepository
	Tenants() TenantRepository
	Memberships() MembershipRepository
	Tokens() TokenRepository

	// Scoped returns the project and task repositories restricted to tenantID.
	// It is the only way to reach tenant-owned entities.
	Scoped(tenantID string) TenantScope
}

// Store is the root persistence handle. WithTx runs fn inside one transaction;
// any error returned by fn rolls every write back.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// EmailExists reports whether an account already uses email
	EmailExists(ctx context.Context, email string) (bool, error)

	// SetCurrentTenant points the user at tenantID and stores the role projection
	SetCurrentTenant(ctx context.Context, userID string, tenantID *string, role *models.Role) error

	// ClearCurrentTenant resets the pointer of every user whose active tenant is tenantID
	ClearCurrentTenant(ctx context.Context, tenantID string) error

	// Delete removes the user together with its memberships and tokens,
	// unassigning its tasks
	Delete(ctx context.Context, id string) error
}

// TenantRepository defines the interface for tenant data access
type TenantRepository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *models.Tenant) error

	// FindByID finds a tenant by ID
	FindByID(ctx context.Context, id string) (*models.Tenant, error)

	// FindBySlug finds a tenant by slug
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)

	// SlugExists reports whether slug is used by a tenant other than excludeID
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	// Update updates a tenant
	Update(ctx context.Context, tenant *models.Tenant) error

	// Delete deletes a tenant and all of its projects, tasks and memberships
	Delete(ctx context.Context, id string) error
}

// MembershipRepository persists the user/tenant edges and their roles
type MembershipRepository interface {
	// Attach creates the edge; ErrMembershipExists if it already exists
	Attach(ctx context.Context, userID, tenantID string, role models.Role) (*models.Membership, error)

	// Detach removes the edge. Removing a missing edge is not an error
	Detach(ctx context.Context, userID, tenantID string) error

	// Find finds a specific membership
	Find(ctx context.Context, userID, tenantID string) (*models.Membership, error)

	// UpdateRole changes the role on an existing edge
	UpdateRole(ctx context.Context, userID, tenantID string, role models.Role) error

	// ListByTenant lists the members of a tenant with their user preloaded
	ListByTenant(ctx context.Context, tenantID string) ([]models.Membership, error)

	// ListByUser lists the memberships of a user with their tenant preloaded
	ListByUser(ctx context.Context, userID string) ([]models.Membership, error)

	// CountByUser counts the tenants a user belongs to
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// TokenRepository stores issued bearer token records
type TokenRepository interface {
	// Create records a newly issued token
	Create(ctx context.Context, token *models.AccessToken) error

	// FindActive returns the token if it exists, is not revoked and has not
	// expired at now; ErrTokenNotFound otherwise
	FindActive(ctx context.Context, id string, now time.Time) (*models.AccessToken, error)

	// Touch records that the token authenticated a request at now
	Touch(ctx context.Context, id string, now time.Time) error

	// Revoke invalidates one token. Revoking an unknown token is not an error
	Revoke(ctx context.Context, id string, now time.Time) error

	// RevokeAllForUser invalidates every token of a user
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error
}

// TenantScope hands out repositories whose every query is filtered by, and
// every create stamped with, one tenant id.
type TenantScope interface {
	TenantID() string
	Projects() ProjectRepository
	Tasks() TaskRepository

	// HasMember reports whether userID belongs to the tenant. Inside a
	// transaction the membership row stays share-locked until commit, so a
	// concurrent detach waits for it.
	HasMember(ctx context.Context, userID string) (bool, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	// VisibleTo limits the result to projects holding a task assigned to this
	// user, and preloads only those tasks
	VisibleTo *string
	Status    *models.ProjectStatus
	WithTasks bool
}

// ProjectRepository defines tenant-scoped project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string, filter ProjectFilter) (*models.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error

	// Delete deletes a project and its tasks
	Delete(ctx context.Context, id string) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID  *string
	AssignedTo *string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	Page       int
	PageSize   int
}

// TaskRepository defines tenant-scoped task data access
type TaskRepository interface {
	// Create stamps the scope's tenant and requires the project to belong to it
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error

	// UnassignUser clears assigned_to on every task of the tenant held by userID
	UnassignUser(ctx context.Context, userID string) error
}
