package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Supplier is the identity record for a bidding participant. Invitation
// matching uses the email, mirroring invites sent to unregistered addresses.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers"`

	ID        string    `bun:",pk"`
	Name      string    `bun:"name"`
	Email     string    `bun:"email"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
