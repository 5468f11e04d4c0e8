package model

import "time"

// Roles carried in the access token's "role" claim.
const (
	RoleAdmin              = "admin"
	RoleCommitteePresident = "committee_president"
	RoleDonor              = "donor"
)

// User represents an account as stored in the `users` table.
//
// Fields:
//  ID             : UUID primary key.
//  Email          : unique, lower-cased email address.
//  FullName       : display name.
//  PasswordHash   : bcrypt hash.
//  Role           : admin, committee_president or donor.
//  NeighborhoodID : neighborhood a committee president manages (nullable).
//  IsActive       : whether the account may log in.
type User struct {
	ID             string    // users.id
	Email          string    // users.email
	FullName       string    // users.full_name
	PasswordHash   string    // users.password_hash
	Role           string    // users.role
	NeighborhoodID *string   // users.neighborhood_id (nullable)
	IsActive       bool      // users.is_active
	CreatedAt      time.Time // users.created_at
	UpdatedAt      time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA‑256 hash of the raw token is persisted.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
