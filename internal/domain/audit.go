package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth  = "auth"
	AuditCategoryGame  = "game"
	AuditCategoryFraud = "fraud"
	AuditCategoryAdmin = "admin"
)

// Audit actions
const (
	// Auth actions
	AuditActionLogin    = "login"
	AuditActionRegister = "register"

	// Game actions
	AuditActionUpgrade     = "upgrade"
	AuditActionBoost       = "boost"
	AuditActionDailyReward = "daily_reward"
	AuditActionLeagueUp    = "league_up"
	AuditActionTaskClaim   = "task_claim"
	AuditActionReferral    = "referral_reward"

	// Fraud actions
	AuditActionRateLimited = "rate_limited"
	AuditActionRestricted  = "restricted"

	// Admin actions
	AuditActionAdminFraudReset = "admin_fraud_reset"
	AuditActionAdminUnrestrict = "admin_unrestrict"
	AuditActionAdminRestrict   = "admin_restrict"
	AuditActionAdminBalance    = "admin_balance_adjust"
)
