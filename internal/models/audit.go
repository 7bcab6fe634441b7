package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionLogout             = "LOGOUT"
	AuditActionRegisterAccount    = "ACCOUNT_REGISTER"
	AuditActionPasswordChange     = "PASSWORD_CHANGE"
	AuditActionRoleChange         = "ROLE_CHANGE"
	AuditActionRegistrationCreate = "REGISTRATION_CREATE"
	AuditActionRegistrationUpdate = "REGISTRATION_UPDATE"
	AuditActionRegistrationDelete = "REGISTRATION_DELETE"
	AuditActionStatusTransition   = "STATUS_TRANSITION"
	AuditActionCheckIn            = "CHECK_IN"
	AuditActionCheckOut           = "CHECK_OUT"
	AuditActionEventActivate      = "EVENT_ACTIVATE"
	AuditActionFinanceTransition  = "FINANCE_TRANSITION"
	AuditActionExport             = "EXPORT"
	AuditActionUpload             = "UPLOAD"
	AuditActionTeamCreate         = "TEAM_CREATE"
	AuditActionBadgeJob           = "BADGE_JOB"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	Client     string    `db:"client" json:"client,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
