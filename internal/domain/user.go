package domain

import "time"

// User is the minimal projection this service needs: identity for ownership
// checks and an address for notifications. Account management lives in the
// identity service that issues our bearer tokens.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
