package model

import "time"

// Audit actions.
const (
	ActionRegister           = "REGISTER"
	ActionLogin              = "LOGIN"
	ActionVerifyEmail        = "VERIFY_EMAIL"
	ActionResetPassword      = "RESET_PASSWORD"
	ActionApplyCertification = "APPLY_CERTIFICATION"
	ActionEvaluateCert       = "EVALUATE_CERTIFICATION"
	ActionNotifyRecycler     = "NOTIFY_RECYCLER"
	ActionApproachCollector  = "APPROACH_COLLECTOR"
	ActionRespondApproach    = "RESPOND_APPROACH"
	ActionSubmitFeedback     = "SUBMIT_FEEDBACK"
	ActionUpdateProfile      = "UPDATE_COLLECTOR_PROFILE"
	ActionVerifyCollector    = "VERIFY_COLLECTOR"
	ActionViewAdminDashboard = "VIEW_ADMIN_DASHBOARD"
	ActionViewUsers          = "VIEW_USERS"
	ActionUpdateUser         = "UPDATE_USER"
)

// AuditLog is an append-only record of a user action.
type AuditLog struct {
	ID             uint64         `json:"id"`
	UserID         uint64         `json:"userId"`
	Action         string         `json:"action"`
	Details        map[string]any `json:"details"`
	IPAddress      string         `json:"ipAddress"`
	UserAgent      string         `json:"userAgent"`
	IdempotencyKey string         `json:"-"`
	Timestamp      time.Time      `json:"timestamp"`
}

// DashboardStats are the headline counters of the admin dashboard.
type DashboardStats struct {
	TotalUsers            int `json:"totalUsers"`
	TotalRecyclers        int `json:"totalRecyclers"`
	TotalCollectors       int `json:"totalCollectors"`
	TotalCertifications   int `json:"totalCertifications"`
	ActiveCertifications  int `json:"activeCertifications"`
	PendingCertifications int `json:"pendingCertifications"`
	TotalHandlers         int `json:"totalHandlers"`
}
