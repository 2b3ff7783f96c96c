package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/multitenant-task-api/internal/auth"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMemberNotFound     = apierrors.NotFound("Member not found")
	ErrAlreadyMember      = apierrors.Conflict("User is already a member of this tenant")
	ErrCannotRemoveSelf   = apierrors.NewAPIError(apierrors.KindBadRequest, apierrors.ErrCodeInvalidOperation, "You cannot remove yourself from the current tenant")
	ErrEmailAlreadyExists = apierrors.Conflict("Email is already registered")
)

// MembershipService manages who belongs to a tenant and with which role.
type MembershipService struct {
	store               repository.Store
	hasher              auth.Hasher
	deleteOrphanedUsers bool
	log                 *zap.Logger
}

// NewMembershipService creates a new MembershipService. When
// deleteOrphanedUsers is set, a user detached from its last tenant is deleted.
func NewMembershipService(store repository.Store, hasher auth.Hasher, deleteOrphanedUsers bool, log *zap.Logger) *MembershipService {
	return &MembershipService{
		store:               store,
		hasher:              hasher,
		deleteOrphanedUsers: deleteOrphanedUsers,
		log:                 log,
	}
}

// CreateMemberInput represents a new account created directly inside a tenant.
type CreateMemberInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// AttachMemberInput names an existing account to add to a tenant.
type AttachMemberInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin user"`
}

// DetachResult reports what happened to the detached user.
type DetachResult struct {
	UserDeleted bool
}

func roleOrDefault(raw string) models.Role {
	if role, ok := models.ParseRole(raw); ok {
		return role
	}
	return models.RoleUser
}

// ListMembers returns the members of a tenant with their roles
func (s *MembershipService) ListMembers(ctx context.Context, tenantID string) ([]models.Membership, error) {
	members, err := s.store.Memberships().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// CreateMember creates an account and attaches it to tenantID in one transaction.
// The tenant becomes the new user's current tenant.
func (s *MembershipService) CreateMember(ctx context.Context, tenantID string, input CreateMemberInput) (*models.Membership, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.store.Users().EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := roleOrDefault(input.Role)
	var membership *models.Membership
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		user := &models.User{
			Name:            input.Name,
			Email:           input.Email,
			PasswordHash:    hashed,
			CurrentTenantID: stringPtr(tenantID),
			ActiveRole:      &role,
		}
		if err := repos.Users().Create(ctx, user); err != nil {
			return conflictOr(err, ErrEmailAlreadyExists.Message)
		}

		created, err := repos.Memberships().Attach(ctx, user.ID, tenantID, role)
		if err != nil {
			return fmt.Errorf("failed to attach member: %w", err)
		}
		created.User = *user
		membership = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return membership, nil
}

// AttachExisting adds an existing account, found by email, to tenantID.
func (s *MembershipService) AttachExisting(ctx context.Context, tenantID string, input AttachMemberInput) (*models.Membership, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}

	membership, err := s.store.Memberships().Attach(ctx, user.ID, tenantID, roleOrDefault(input.Role))
	if err != nil {
		if errors.Is(err, repository.ErrMembershipExists) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to attach member: %w", err)
	}

	membership.User = *user
	return membership, nil
}

// UpdateRole changes a member's role. A user currently operating in the
// tenant sees the new role on its next request.
func (s *MembershipService) UpdateRole(ctx context.Context, tenantID, userID, rawRole string) (*models.Membership, error) {
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return nil, apierrors.FieldError("role", "must be one of: admin, user")
	}

	var membership *models.Membership
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Memberships().Find(ctx, userID, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("failed to find member: %w", err)
		}

		if err := repos.Memberships().UpdateRole(ctx, userID, tenantID, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		existing.Role = role

		user, err := repos.Users().FindByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if user.HasActiveTenant() && *user.CurrentTenantID == tenantID {
			if err := NewRoleResolver(repos).SyncActiveRole(ctx, user); err != nil {
				return err
			}
		}

		existing.User = *user
		membership = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return membership, nil
}

// Detach removes userID from tenantID. Its tasks in the tenant are
// unassigned, its current tenant pointer is cleared when it pointed here, and
// when this was its last membership the orphan policy decides whether the
// account survives.
func (s *MembershipService) Detach(ctx context.Context, tenantID, userID string) (*DetachResult, error) {
	result := &DetachResult{}
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Memberships().Find(ctx, userID, tenantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("failed to find member: %w", err)
		}

		if err := repos.Scoped(tenantID).Tasks().UnassignUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}

		if err := repos.Memberships().Detach(ctx, userID, tenantID); err != nil {
			return fmt.Errorf("failed to detach member: %w", err)
		}

		user, err := repos.Users().FindByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user")
		}
		if user.HasActiveTenant() && *user.CurrentTenantID == tenantID {
			if err := repos.Users().SetCurrentTenant(ctx, userID, nil, nil); err != nil {
				return fmt.Errorf("failed to clear current tenant: %w", err)
			}
		}

		remaining, err := repos.Memberships().CountByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		if remaining == 0 && s.deleteOrphanedUsers {
			if err := repos.Users().Delete(ctx, userID); err != nil {
				return fmt.Errorf("failed to delete orphaned user: %w", err)
			}
			result.UserDeleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.UserDeleted {
		// Token records may live outside the transaction
		if err := s.store.Tokens().RevokeAllForUser(ctx, userID, timeNow()); err != nil {
			s.log.Warn("Failed to revoke tokens of deleted user", zap.String("user_id", userID), zap.Error(err))
		}
		s.log.Info("Deleted orphaned user", zap.String("user_id", userID), zap.String("tenant_id", tenantID))
	}

	return result, nil
}
