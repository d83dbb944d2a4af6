package domain

import "time"

// AuditEntry records a lifecycle action for admin visibility.
type AuditEntry struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"` // e.g. "createLease", "extendLease"
	UserID      string    `json:"user_id"`
	LeaseID     string    `json:"lease_id,omitempty"`
	CarID       string    `json:"car_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
