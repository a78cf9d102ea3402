package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. The ID is stable for the account's lifetime; the
// password is stored only as an argon2id hash produced in the auth layer.
type User struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
