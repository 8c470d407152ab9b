package services

import (
	"github.com/beamdash/backend/internal/models"
	"github.com/google/uuid"
)

// Caller is the authenticated identity behind a request. Role is empty for
// identities without an admin row.
type Caller struct {
	ID   uuid.UUID
	Role models.AdminRole
}

func (c Caller) Can(level models.AccessLevel) bool {
	return c.Role.Allows(level)
}
