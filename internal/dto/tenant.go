package dto

import (
	"time"

	"github.com/yukikurage/multitenant-task-api/internal/models"
)

// TenantDTO represents a tenant in API responses
type TenantDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Settings  string    `json:"settings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantWithRoleDTO represents a tenant with the user's role in it
type TenantWithRoleDTO struct {
	TenantDTO
	Role models.Role `json:"role"`
}

// MemberDTO represents a member of a tenant
type MemberDTO struct {
	User     UserSummaryDTO `json:"user"`
	Role     models.Role    `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
}

// TenantDetailDTO represents detailed tenant information
type TenantDetailDTO struct {
	TenantDTO
	YourRole models.Role  `json:"your_role"`
	Members  []MemberDTO  `json:"members"`
	Projects []ProjectDTO `json:"projects"`
	Tasks    []TaskDTO    `json:"tasks"`
}

// ToTenantDTO converts a Tenant model to TenantDTO
func ToTenantDTO(tenant models.Tenant) TenantDTO {
	return TenantDTO{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Slug:      tenant.Slug,
		Settings:  tenant.Settings,
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
	}
}

// ToTenantWithRoleDTOs converts the memberships of a user to tenants with role
func ToTenantWithRoleDTOs(memberships []models.Membership) []TenantWithRoleDTO {
	tenants := make([]TenantWithRoleDTO, len(memberships))
	for i, m := range memberships {
		tenants[i] = TenantWithRoleDTO{
			TenantDTO: ToTenantDTO(m.Tenant),
			Role:      m.Role,
		}
	}
	return tenants
}

// ToMemberDTO converts a membership with its user to MemberDTO
func ToMemberDTO(m models.Membership) MemberDTO {
	return MemberDTO{
		User:     ToUserSummaryDTO(m.User),
		Role:     m.Role,
		JoinedAt: m.CreatedAt,
	}
}

// ToMemberDTOs converts the memberships of a tenant to members
func ToMemberDTOs(memberships []models.Membership) []MemberDTO {
	members := make([]MemberDTO, len(memberships))
	for i, m := range memberships {
		members[i] = ToMemberDTO(m)
	}
	return members
}

// ToTenantDetailDTO converts a tenant with members, projects and tasks
func ToTenantDetailDTO(tenant models.Tenant, yourRole models.Role, members []models.Membership, projects []models.Project, tasks []models.Task) TenantDetailDTO {
	return TenantDetailDTO{
		TenantDTO: ToTenantDTO(tenant),
		YourRole:  yourRole,
		Members:   ToMemberDTOs(members),
		Projects:  ToProjectDTOs(projects),
		Tasks:     ToTaskDTOs(tasks),
	}
}
