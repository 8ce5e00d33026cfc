package domain

import (
	"time"

	"github.com/google/uuid"
)

// Note is a free-text note attached to a client.
type Note struct {
	ID        uuid.UUID  `json:"id"`
	Content   string     `json:"content"`
	ClientID  uuid.UUID  `json:"client"`
	AuthorID  *uuid.UUID `json:"author,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
