package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated CRM user, referenced by owner/assignee fields.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
