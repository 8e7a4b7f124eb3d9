package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// Security decisions
	ActionLogin            = "LOGIN"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionTokenRefresh     = "TOKEN_REFRESH"
	ActionTokenRevoked     = "TOKEN_REVOKED"
	ActionLogout           = "LOGOUT"
	ActionLogoutAll        = "LOGOUT_ALL"
	ActionPasswordChange   = "PASSWORD_CHANGE"
	ActionPermissionDenied = "PERMISSION_DENIED"
	ActionBranchDenied     = "BRANCH_ACCESS_DENIED"
	ActionTenantRejected   = "TENANT_REJECTED"

	// Data mutations
	ActionCreateSale         = "CREATE_SALE"
	ActionDispenseRx         = "DISPENSE_PRESCRIPTION"
	ActionAdjustStock        = "ADJUST_STOCK"
	ActionCreateUser         = "CREATE_USER"
	ActionUpdateUser         = "UPDATE_USER"
	ActionDeleteUser         = "DELETE_USER"
	ActionSuspendTenant      = "SUSPEND_TENANT"
	ActionGrantBranchAccess  = "GRANT_BRANCH_ACCESS"
	ActionRevokeBranchAccess = "REVOKE_BRANCH_ACCESS"
)

// AuditLog tracks Who, What, and When for security decisions and critical
// changes. Writing an entry must never block or fail the request it records.
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for unauthenticated attempts
	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID  string     `gorm:"type:varchar(64);index" json:"entity_id"`
	Allowed   bool       `gorm:"not null" json:"allowed"`
	Reason    string     `gorm:"type:varchar(255)" json:"reason"`
	Details   string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
