package model

import "time"

// RecipientType addresses a notification to an admin or a member.
type RecipientType string

// Recipient types.
const (
	RecipientAdmin RecipientType = "ADMIN"
	RecipientUser  RecipientType = "USER"
)

// Valid reports whether r is a known recipient type.
func (r RecipientType) Valid() bool {
	return r == RecipientAdmin || r == RecipientUser
}

// NotificationType tags the domain event a notification reports.
type NotificationType string

// Notification types.
const (
	NotifyLoanRequested   NotificationType = "LOAN_REQUESTED"
	NotifyLoanApproved    NotificationType = "LOAN_APPROVED"
	NotifyLoanRejected    NotificationType = "LOAN_REJECTED"
	NotifyReturnRequested NotificationType = "RETURN_REQUESTED"
	NotifyReturnConfirmed NotificationType = "RETURN_CONFIRMED"
	NotifyNotice          NotificationType = "NOTICE"
)

// Notification is one in-system message to one recipient.
type Notification struct {
	ID            int64            `json:"id" db:"id"`
	RecipientType RecipientType    `json:"recipient_type" db:"recipient_type"`
	RecipientID   int64            `json:"recipient_id" db:"recipient_id"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	IsRead        bool             `json:"is_read" db:"is_read"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}
