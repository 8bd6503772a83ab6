package model

import "time"

// NotificationType is the severity/category tag of a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
	NotifySuccess NotificationType = "success"
)

// Notification is an in-app message owned by one user.  IdempotencyKey,
// when set, makes repeated inserts of the same notification a no-op.
type Notification struct {
	ID             uint64           `json:"id"`
	UserID         uint64           `json:"userId"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	IsRead         bool             `json:"isRead"`
	ActionURL      *string          `json:"actionUrl,omitempty"`
	IdempotencyKey string           `json:"-"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
