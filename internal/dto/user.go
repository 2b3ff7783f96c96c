package dto

import (
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	CurrentTenantID *string      `json:"current_tenant_id"`
	ActiveRole      *models.Role `json:"active_role"`
	CreatedAt       time.Time    `json:"created_at"`
}

// UserSummaryDTO is the short form embedded in other resources
type UserSummaryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User      UserDTO   `json:"user"`
	Tenant    TenantDTO `json:"tenant"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse describes the caller
type MeResponse struct {
	User    UserDTO             `json:"user"`
	Tenant  *TenantDTO          `json:"tenant"`
	Role    *models.Role        `json:"role"`
	Tenants []TenantWithRoleDTO `json:"tenants"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		CurrentTenantID: user.CurrentTenantID,
		ActiveRole:      user.ActiveRole,
		CreatedAt:       user.CreatedAt,
	}
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// ToAuthResponse builds the register/login payload
func ToAuthResponse(user models.User, tenant models.Tenant, token string, expiresAt time.Time) AuthResponse {
	return AuthResponse{
		User:      ToUserDTO(user),
		Tenant:    ToTenantDTO(tenant),
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}
}

// ToMeResponse builds the /me payload
func ToMeResponse(user models.User, tenant *models.Tenant, role *models.Role, memberships []models.Membership) MeResponse {
	resp := MeResponse{
		User:    ToUserDTO(user),
		Role:    role,
		Tenants: ToTenantWithRoleDTOs(memberships),
	}
	if tenant != nil {
		t := ToTenantDTO(*tenant)
		resp.Tenant = &t
	}
	return resp
}
