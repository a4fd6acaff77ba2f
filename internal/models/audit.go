package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionDelete  = "DELETE"
	AuditActionView    = "VIEW"
	AuditActionExport  = "EXPORT"
	AuditActionImport  = "IMPORT"
	AuditActionLogin   = "LOGIN"
	AuditActionLogout  = "LOGOUT"
	AuditActionApprove = "APPROVE"
	AuditActionReject  = "REJECT"

	AuditActionPasswordChange = "PASSWORD_CHANGE"
)

// Audit resource types.
const (
	ResourceStaffProfile     = "staff_profile"
	ResourceEmployment       = "employment_record"
	ResourceEducation        = "education_background"
	ResourceStaffApplication = "staff_application"
	ResourceAuth             = "auth"
	ResourcePhoto            = "photo"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id,omitempty"`
	Action       string    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   *string   `db:"resource_id" json:"resource_id,omitempty"`
	Description  string    `db:"description" json:"description"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter narrows audit listings.
type AuditLogFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Page         int
	PageSize     int
}
