package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/auth"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	apierrors "github.com/yukikurage/multitenant-task-api/internal/errors"
	"github.com/yukikurage/multitenant-task-api/internal/models"
	"github.com/yukikurage/multitenant-task-api/internal/repository"
	"github.com/yukikurage/multitenant-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is shared by every login failure after the tenant
	// lookup so callers cannot probe which part was wrong.
	ErrInvalidCredentials = apierrors.Auth(apierrors.ErrCodeInvalidCredentials, "Invalid credentials")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	store  repository.Store
	hasher auth.Hasher
	codec  *auth.TokenCodec
	now    func() time.Time

	// dummyHash is compared against when the email is unknown so that
	// every credential failure costs one hash comparison
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, hasher auth.Hasher, codec *auth.TokenCodec) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		codec:  codec,
		now:    time.Now,
	}
}

// RegisterInput represents the required information to create a tenant and its first admin.
type RegisterInput struct {
	TenantName string `json:"tenant_name" validate:"required,max=255"`
	TenantSlug string `json:"tenant_slug" validate:"omitempty,max=255"`
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	TenantSlug string `json:"tenant_slug" validate:"required"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	User      *models.User
	Tenant    *models.Tenant
	Token     string
	ExpiresAt time.Time
}

// Profile describes the caller and the tenants it can switch to
type Profile struct {
	User        *models.User
	Tenant      *models.Tenant
	Role        *models.Role
	Memberships []models.Membership
}

// SlugSuggestion is attached to the ConflictError raised for a taken slug
type SlugSuggestion struct {
	SuggestedSlug string `json:"suggested_slug"`
}

// Register creates a tenant, its first user as admin, and a token, atomically.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.TenantName = strings.TrimSpace(input.TenantName)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.TenantSlug = strings.TrimSpace(input.TenantSlug)

	if err := validateInput(input); err != nil {
		return nil, err
	}

	slug, chosen, err := s.resolveRegisterSlug(ctx, input)
	if err != nil {
		return nil, err
	}

	emailTaken, err := s.store.Users().EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		return nil, apierrors.Conflict("Email is already registered")
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var result *AuthResult
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		if !chosen {
			free, err := uniqueSlug(ctx, repos.Tenants(), slug, "")
			if err != nil {
				return err
			}
			slug = free
		}

		tenant := &models.Tenant{Name: input.TenantName, Slug: slug}
		if err := repos.Tenants().Create(ctx, tenant); err != nil {
			return conflictOr(err, "Tenant slug or email is already taken")
		}

		admin := models.RoleAdmin
		user := &models.User{
			Name:            input.Name,
			Email:           input.Email,
			PasswordHash:    hashed,
			CurrentTenantID: stringPtr(tenant.ID),
			ActiveRole:      &admin,
		}
		if err := repos.Users().Create(ctx, user); err != nil {
			return conflictOr(err, "Tenant slug or email is already taken")
		}

		if _, err := repos.Memberships().Attach(ctx, user.ID, tenant.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}

		issued, err := s.issue(ctx, repos, user.ID)
		if err != nil {
			return err
		}

		result = &AuthResult{User: user, Tenant: tenant, Token: issued.Token, ExpiresAt: issued.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// resolveRegisterSlug returns the slug to register and whether the caller
// chose it. A chosen slug that is taken is a conflict carrying the first free
// alternative. A slug derived from the tenant name is only a base; the free
// form is picked inside the registration transaction.
func (s *AuthService) resolveRegisterSlug(ctx context.Context, input RegisterInput) (string, bool, error) {
	if input.TenantSlug == "" {
		derived, err := utils.Slugify(input.TenantName, constants.SlugFallback)
		if err != nil {
			return "", false, apierrors.FieldError("tenant_slug", "could not be derived from tenant_name")
		}
		return derived, false, nil
	}

	if !utils.ValidSlug(input.TenantSlug) {
		return "", true, apierrors.FieldError("tenant_slug", "may only contain lowercase letters, digits and hyphens")
	}

	taken, err := s.store.Tenants().SlugExists(ctx, input.TenantSlug, "")
	if err != nil {
		return "", true, fmt.Errorf("failed to check slug: %w", err)
	}
	if !taken {
		return input.TenantSlug, true, nil
	}

	suggestion, err := uniqueSlug(ctx, s.store.Tenants(), input.TenantSlug, "")
	if err != nil {
		return "", true, err
	}
	return "", true, apierrors.Conflict("Tenant slug is already taken").
		WithDetails(SlugSuggestion{SuggestedSlug: suggestion})
}

// Login verifies credentials against a tenant and issues a token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	input.TenantSlug = strings.TrimSpace(input.TenantSlug)

	if err := validateInput(input); err != nil {
		return nil, err
	}

	tenant, err := s.store.Tenants().FindBySlug(ctx, input.TenantSlug)
	if err != nil {
		return nil, notFoundOr(err, "tenant")
	}

	user, err := s.store.Users().FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.hasher.Compare(s.unknownUserHash(), input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	role, err := NewRoleResolver(s.store).RoleOf(ctx, user.ID, tenant.ID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrInvalidCredentials
	}

	var result *AuthResult
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		user.CurrentTenantID = stringPtr(tenant.ID)
		if err := NewRoleResolver(repos).SyncActiveRole(ctx, user); err != nil {
			return err
		}

		issued, err := s.issue(ctx, repos, user.ID)
		if err != nil {
			return err
		}

		result = &AuthResult{User: user, Tenant: tenant, Token: issued.Token, ExpiresAt: issued.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash("unknown-user-placeholder")
		if err == nil {
			s.dummyHash = hashed
		}
	})
	return s.dummyHash
}

func (s *AuthService) issue(ctx context.Context, repos repository.Repositories, userID string) (*auth.IssuedToken, error) {
	issued, err := s.codec.Issue(userID)
	if err != nil {
		return nil, err
	}

	record := &models.AccessToken{
		ID:        issued.TokenID,
		UserID:    userID,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := repos.Tokens().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return issued, nil
}

// ResolveIdentity returns the user behind a bearer token. Malformed, expired,
// revoked and orphaned tokens are all reported as the same AuthError.
func (s *AuthService) ResolveIdentity(ctx context.Context, bearer string) (*models.User, error) {
	claims, err := s.codec.Parse(bearer)
	if err != nil {
		return nil, apierrors.ErrInvalidToken
	}

	record, err := s.store.Tokens().FindActive(ctx, claims.TokenID(), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, apierrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if record.UserID != claims.UserID() {
		return nil, apierrors.ErrInvalidToken
	}

	user, err := s.store.Users().FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.store.Tokens().Touch(ctx, record.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to touch token: %w", err)
	}

	return user, nil
}

// Logout revokes exactly the presented token
func (s *AuthService) Logout(ctx context.Context, bearer string) error {
	claims, err := s.codec.Parse(bearer)
	if err != nil {
		return apierrors.ErrInvalidToken
	}
	if err := s.store.Tokens().Revoke(ctx, claims.TokenID(), s.now()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// LogoutAll revokes every token of the user
func (s *AuthService) LogoutAll(ctx context.Context, user *models.User) error {
	if err := s.store.Tokens().RevokeAllForUser(ctx, user.ID, s.now()); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// SwitchTenant makes tenantID the user's current tenant. Switching to the
// current tenant again is a no-op apart from re-syncing the role.
func (s *AuthService) SwitchTenant(ctx context.Context, user *models.User, tenantID string) (*models.User, error) {
	role, err := NewRoleResolver(s.store).RoleOf(ctx, user.ID, tenantID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, apierrors.ErrNotMember
	}

	if err := s.store.Users().SetCurrentTenant(ctx, user.ID, &tenantID, role); err != nil {
		return nil, fmt.Errorf("failed to switch tenant: %w", err)
	}

	user.CurrentTenantID = stringPtr(tenantID)
	user.ActiveRole = role
	return user, nil
}

// Me returns the caller with its current tenant, role and memberships
func (s *AuthService) Me(ctx context.Context, user *models.User) (*Profile, error) {
	memberships, err := s.store.Memberships().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	profile := &Profile{User: user, Memberships: memberships}
	if !user.HasActiveTenant() {
		return profile, nil
	}

	for i := range memberships {
		if memberships[i].TenantID == *user.CurrentTenantID {
			tenant := memberships[i].Tenant
			role := memberships[i].Role
			profile.Tenant = &tenant
			profile.Role = &role
			break
		}
	}
	return profile, nil
}
