package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"citycar-backend/internal/domain"
	"citycar-backend/internal/service"
)

// CarHandler serves the catalog and the admin fleet endpoints.
type CarHandler struct {
	cars  service.CarService
	audit service.AuditService
}

func NewCarHandler(cars service.CarService, audit service.AuditService) *CarHandler {
	return &CarHandler{cars: cars, audit: audit}
}

func (h *CarHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	cars, total, err := h.cars.ListCars(r.Context(), page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cars":  cars,
		"total": total,
	})
}

func (h *CarHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	car, err := h.cars.GetCar(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, car)
}

func (h *CarHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)

	var car domain.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		respondError(w, domain.Validationf("invalid request body"))
		return
	}

	if err := h.cars.CreateCar(r.Context(), claims.UserID, &car); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, car)
}

func (h *CarHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r)

	var car domain.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		respondError(w, domain.Validationf("invalid request body"))
		return
	}
	car.ID = mux.Vars(r)["id"]

	if err := h.cars.UpdateCar(r.Context(), claims.UserID, &car); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, car)
}

// ListActivity returns the audit trail for admins.
func (h *CarHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.audit.ListActivity(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
