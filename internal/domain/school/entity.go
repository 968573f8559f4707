package school

import (
	"time"

	"github.com/google/uuid"
)

// School represents one tenant of the platform
type School struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Subdomain string    `db:"subdomain"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
