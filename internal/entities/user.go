package entities

import "time"

// User owns conversations. Inbound channel messages resolve to a user by phone number,
// API callers by bearer token.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
