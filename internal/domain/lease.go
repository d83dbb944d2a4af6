package domain

import "time"

type LeaseStatus string

const (
	// LeaseStatusPending is a hold: the car is reserved but payment has not
	// been confirmed. Initial leases and in-flight extensions both sit here.
	LeaseStatusPending LeaseStatus = "pending"
	// LeaseStatusActive means the payment-success webhook confirmed the lease.
	LeaseStatusActive LeaseStatus = "active"
	// LeaseStatusCompleted means the car was returned.
	LeaseStatusCompleted LeaseStatus = "completed"
	// LeaseStatusExpired is set by the expiry sweep once end_date passes
	// without a return or extension.
	LeaseStatusExpired LeaseStatus = "expired"
	// LeaseStatusCancelled means payment failed or the hold timed out.
	LeaseStatusCancelled LeaseStatus = "cancelled"
)

// FirstLeaseDays is the product rule: an initial lease is exactly one week.
const FirstLeaseDays = 7

type Lease struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	CarID            string      `json:"car_id"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	TotalAmountCents int64       `json:"total_amount_cents"`
	Status           LeaseStatus `json:"status"`
	IsReturned       bool        `json:"is_returned"`
	ReturnedDate     *time.Time  `json:"returned_date,omitempty"`
	// PaymentIntentID is the gateway reference of the most recent intent;
	// an extension replaces it with the extension intent.
	PaymentIntentID string `json:"payment_intent_id"`
	// PrevEndDate and PendingChargeCents are set while an extension awaits
	// payment confirmation. Success applies the charge and clears both;
	// failure restores PrevEndDate.
	PrevEndDate        *time.Time `json:"prev_end_date,omitempty"`
	PendingChargeCents int64      `json:"pending_charge_cents,omitempty"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Terminal reports whether the lease can no longer hold a car.
func (s LeaseStatus) Terminal() bool {
	return s == LeaseStatusCompleted || s == LeaseStatusExpired || s == LeaseStatusCancelled
}
