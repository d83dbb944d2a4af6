package domain

import "time"

type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelElectric FuelType = "Electric"
	FuelHybrid   FuelType = "Hybrid"
)

type Transmission string

const (
	TransmissionManual    Transmission = "Manual"
	TransmissionAutomatic Transmission = "Automatic"
)

// Car is a rentable vehicle. Available is owned by the lease lifecycle:
// it is false exactly while a lease on this car is pending or active, and
// only the lease service and the sweep jobs may flip it.
type Car struct {
	ID               string       `json:"id"`
	Brand            string       `json:"brand"`
	ModelName        string       `json:"model_name"`
	Year             int          `json:"year"`
	Color            string       `json:"color"`
	Passengers       int          `json:"passengers"`
	Doors            int          `json:"doors"`
	FuelType         FuelType     `json:"fuel_type"`
	Transmission     Transmission `json:"transmission"`
	PricePerDayCents int64        `json:"price_per_day_cents"`
	Available        bool         `json:"available"`
	Description      string       `json:"description"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
