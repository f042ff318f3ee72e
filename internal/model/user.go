package model

import "time"

// User represents an application user record as stored in the `users`
// table. Accounts are created by the identity-resolution endpoint from a
// Google profile; there is no local password credential. The json tags are
// omitted because these structs are used internally by the repository
// layer; handlers define separate response types.
//
// Fields:
//  ID        – primary key identifier of the user.
//  GoogleID  – unique identifier assigned by the identity provider.
//  Email     – email address reported by the provider.
//  Name      – display name reported by the provider.
//  Avatar    – profile picture URL, empty when the provider sent none.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type User struct {
	ID        uint64    // users.id
	GoogleID  string    // users.google_id
	Email     string    // users.email
	Name      string    // users.name
	Avatar    string    // users.avatar
	CreatedAt time.Time // users.created_at
	UpdatedAt time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
