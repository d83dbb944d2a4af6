package domain

import (
	"strconv"
	"time"
)

// IntentAction tags what a payment intent pays for. The reconciler dispatches
// on the parsed variant, never on raw metadata strings.
type IntentAction string

const (
	ActionCreateLease IntentAction = "createLease"
	ActionExtendLease IntentAction = "extendLease"
)

// IntentMetadata is the payload this system attaches to a payment intent at
// creation time and reads back from verified webhook events. It is trusted
// only after signature verification.
type IntentMetadata interface {
	Action() IntentAction
	LeaseRef() string
}

// CreateLeaseIntent is the metadata of an initial 7-day lease charge.
type CreateLeaseIntent struct {
	UserID    string
	CarID     string
	LeaseID   string
	Email     string
	StartDate time.Time
	EndDate   time.Time
}

func (CreateLeaseIntent) Action() IntentAction { return ActionCreateLease }
func (m CreateLeaseIntent) LeaseRef() string   { return m.LeaseID }

// ExtendLeaseIntent is the metadata of an extension charge.
type ExtendLeaseIntent struct {
	UserID         string
	CarID          string
	LeaseID        string
	Email          string
	AdditionalDays int
	NewEndDate     time.Time
}

func (ExtendLeaseIntent) Action() IntentAction { return ActionExtendLease }
func (m ExtendLeaseIntent) LeaseRef() string   { return m.LeaseID }

const metadataDateLayout = time.RFC3339

// PaymentRecord is one entry of a user's payment history, derived from
// leases that carry a gateway payment intent.
type PaymentRecord struct {
	LeaseID         string      `json:"leaseId"`
	CarID           string      `json:"carId"`
	PaymentIntentID string      `json:"paymentIntentId"`
	AmountCents     int64       `json:"amountCents"`
	Status          LeaseStatus `json:"status"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"`
}

// ParseIntentMetadata decodes the flat string map carried by the gateway into
// a typed variant. Unknown or missing actions are validation failures so a
// malformed (but correctly signed) event is rejected explicitly.
func ParseIntentMetadata(meta map[string]string) (IntentMetadata, error) {
	switch IntentAction(meta["action"]) {
	case ActionCreateLease:
		start, err := time.Parse(metadataDateLayout, meta["startDate"])
		if err != nil {
			return nil, Validationf("intent metadata: bad startDate %q", meta["startDate"])
		}
		end, err := time.Parse(metadataDateLayout, meta["endDate"])
		if err != nil {
			return nil, Validationf("intent metadata: bad endDate %q", meta["endDate"])
		}
		m := CreateLeaseIntent{
			UserID:    meta["userId"],
			CarID:     meta["carId"],
			LeaseID:   meta["leaseId"],
			Email:     meta["email"],
			StartDate: start,
			EndDate:   end,
		}
		if m.UserID == "" || m.CarID == "" || m.LeaseID == "" {
			return nil, Validationf("intent metadata: missing ids for createLease")
		}
		return m, nil

	case ActionExtendLease:
		days, err := strconv.Atoi(meta["additionalDays"])
		if err != nil || days <= 0 {
			return nil, Validationf("intent metadata: bad additionalDays %q", meta["additionalDays"])
		}
		newEnd, err := time.Parse(metadataDateLayout, meta["newEndDate"])
		if err != nil {
			return nil, Validationf("intent metadata: bad newEndDate %q", meta["newEndDate"])
		}
		m := ExtendLeaseIntent{
			UserID:         meta["userId"],
			CarID:          meta["carId"],
			LeaseID:        meta["leaseId"],
			Email:          meta["email"],
			AdditionalDays: days,
			NewEndDate:     newEnd,
		}
		if m.UserID == "" || m.CarID == "" || m.LeaseID == "" {
			return nil, Validationf("intent metadata: missing ids for extendLease")
		}
		return m, nil

	default:
		return nil, Validationf("intent metadata: unknown action %q", meta["action"])
	}
}

// Encode builds the metadata map attached at intent creation.
func (m CreateLeaseIntent) Encode() map[string]string {
	return map[string]string{
		"action":    string(ActionCreateLease),
		"userId":    m.UserID,
		"carId":     m.CarID,
		"leaseId":   m.LeaseID,
		"email":     m.Email,
		"startDate": m.StartDate.Format(metadataDateLayout),
		"endDate":   m.EndDate.Format(metadataDateLayout),
	}
}

func (m ExtendLeaseIntent) Encode() map[string]string {
	return map[string]string{
		"action":         string(ActionExtendLease),
		"userId":         m.UserID,
		"carId":          m.CarID,
		"leaseId":        m.LeaseID,
		"email":          m.Email,
		"additionalDays": strconv.Itoa(m.AdditionalDays),
		"newEndDate":     m.NewEndDate.Format(metadataDateLayout),
	}
}
