package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleHR         UserRole = "HR"
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleStaff      UserRole = "STAFF"
	RoleReadOnly   UserRole = "READONLY"
)

// Permission names a capability granted by a role.
type Permission string

const (
	PermViewAllStaff       Permission = "view_all_staff"
	PermEditStaff          Permission = "edit_staff"
	PermExportData         Permission = "export_data"
	PermImportData         Permission = "import_data"
	PermManageUsers        Permission = "manage_users"
	PermViewStatistics     Permission = "view_statistics"
	PermReviewApplications Permission = "review_applications"
)

var rolePermissions = map[UserRole][]Permission{
	RoleAdmin:      {PermViewAllStaff, PermEditStaff, PermExportData, PermImportData, PermManageUsers, PermViewStatistics, PermReviewApplications},
	RoleHR:         {PermViewAllStaff, PermEditStaff, PermExportData, PermImportData, PermViewStatistics, PermReviewApplications},
	RoleSupervisor: {PermViewAllStaff, PermViewStatistics},
	RoleStaff:      {},
	RoleReadOnly:   {PermViewAllStaff},
}

// Can reports whether the role grants perm.
func (r UserRole) Can(perm Permission) bool {
	for _, p := range rolePermissions[r] {
		if p == perm {
			return true
		}
	}
	return false
}

// Permissions lists the capabilities granted by the role.
func (r UserRole) Permissions() []Permission {
	return append([]Permission{}, rolePermissions[r]...)
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Info describes the account for auth responses.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Permissions: u.Role.Permissions(),
	}
}

// CreateUserRequest provisions a login account.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	FullName string   `json:"full_name" validate:"required,max=200"`
	Role     UserRole `json:"role" validate:"required"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
