package services

import (
	"github.com/yukikurage/multitenant-task-api/internal/auth"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"go.uber.org/zap"
)

// Options configures the service layer
type Options struct {
	// DeleteOrphanedUsers removes an account detached from its last tenant.
	DeleteOrphanedUsers bool
	// Generator backs AI task generation. Nil disables it.
	Generator TaskGenerator
	Logger    *zap.Logger
}

// Services bundles every service sharing one store
type Services struct {
	Auth        *AuthService
	Tenants     *TenantService
	Memberships *MembershipService
	Projects    *ProjectService
	Tasks       *TaskService
	Contexts    *TenantContextResolver
}

// New wires the services over store.
func New(store repository.Store, hasher auth.Hasher, codec *auth.TokenCodec, opts Options) *Services {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	enforcer := NewScopeEnforcer(store)
	return &Services{
		Auth:        NewAuthService(store, hasher, codec),
		Tenants:     NewTenantService(store, enforcer),
		Memberships: NewMembershipService(store, hasher, opts.DeleteOrphanedUsers, log),
		Projects:    NewProjectService(enforcer),
		Tasks:       NewTaskService(enforcer, opts.Generator),
		Contexts:    NewTenantContextResolver(NewRoleResolver(store)),
	}
}
