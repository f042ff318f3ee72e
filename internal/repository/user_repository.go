package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/salasapp/reserva-salas/internal/model"
)

// UserRepo persists users keyed by their identity-provider id. Accounts
// are only ever written through UpsertByGoogleID; the reservation core
// treats users as read-only.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// UpsertByGoogleID creates the user on first sign-in and refreshes the
// profile fields on subsequent ones. The avatar is only replaced when the
// provider actually sent one, so a sign-in without a photo does not wipe
// a previously stored URL. Returns the stored record.
func (r *UserRepo) UpsertByGoogleID(ctx context.Context, googleID, email, name, avatar string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (google_id, email, name, avatar) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     email = VALUES(email),
		     name = VALUES(name),
		     avatar = COALESCE(NULLIF(VALUES(avatar), ''), avatar)`,
		googleID, email, name, avatar)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByGoogleID(ctx, googleID)
}

// GetByGoogleID fetches a user by identity-provider id.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	var u model.User
	var avatar sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, google_id, email, name, avatar, created_at, updated_at FROM users WHERE google_id = ? LIMIT 1`,
		googleID).Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &avatar, &u.CreatedAt, &u.UpdatedAt)
	u.Avatar = avatar.String
	return u, err
}

// GetByID fetches a user by internal id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	var avatar sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, google_id, email, name, avatar, created_at, updated_at FROM users WHERE id = ? LIMIT 1`,
		id).Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &avatar, &u.CreatedAt, &u.UpdatedAt)
	u.Avatar = avatar.String
	return u, err
}
