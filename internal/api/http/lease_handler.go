package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/service"
)

const dateLayout = "2006-01-02"

// LeaseHandler serves the lease lifecycle endpoints.
type LeaseHandler struct {
	leases service.LeaseService
}

func NewLeaseHandler(leases service.LeaseService) *LeaseHandler {
	return &LeaseHandler{leases: leases}
}

type createLeaseRequest struct {
	CarID     string `json:"carId"`
	StartDate string `json:"startDate"` // YYYY-MM-DD
	EndDate   string `json:"endDate"`   // YYYY-MM-DD, optional; must be exactly 7 days after startDate
}

// CreateLease opens a 7-day lease hold and returns the checkout session the
// client completes payment with.
func (h *LeaseHandler) CreateLease(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)

	var req createLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Validationf("invalid request body"))
		return
	}
	start, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		respondError(w, domain.Validationf("startDate must be YYYY-MM-DD"))
		return
	}
	if req.EndDate != "" {
		end, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
		if err != nil {
			respondError(w, domain.Validationf("endDate must be YYYY-MM-DD"))
			return
		}
		if !end.Equal(start.AddDate(0, 0, domain.FirstLeaseDays)) {
			respondError(w, domain.Validationf("a new lease runs exactly %d days", domain.FirstLeaseDays))
			return
		}
	}

	session, err := h.leases.CreateLease(r.Context(), claims.UserID, claims.Email, req.CarID, start)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

type extendLeaseRequest struct {
	AdditionalDays int `json:"additionalDays"`
}

func (h *LeaseHandler) ExtendLease(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)
	leaseID := mux.Vars(r)["id"]

	var req extendLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Validationf("invalid request body"))
		return
	}

	session, err := h.leases.ExtendLease(r.Context(), claims.UserID, claims.Email, leaseID, req.AdditionalDays)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *LeaseHandler) ReturnCar(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)
	leaseID := mux.Vars(r)["id"]

	lease, err := h.leases.ReturnCar(r.Context(), claims.UserID, leaseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lease)
}

func (h *LeaseHandler) GetLease(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)
	leaseID := mux.Vars(r)["id"]

	lease, err := h.leases.GetLease(r.Context(), claims.UserID, claims.IsAdmin, leaseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lease)
}

func (h *LeaseHandler) ListMyLeases(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)

	leases, err := h.leases.ListUserLeases(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, leases)
}

func (h *LeaseHandler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)

	records, err := h.leases.PaymentHistory(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}
