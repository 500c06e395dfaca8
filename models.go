package tokens

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// User is the user model. Confirmation and password reset state lives
// directly on the record as a stored token plus the timestamp it was
// sent at. A token column is NULL whenever no exchange is in flight.
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role               UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName          string         `bun:"first_name" json:"first_name,omitempty"`
	LastName           string         `bun:"last_name" json:"last_name,omitempty"`
	Username           string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email              string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string         `bun:"password_hash" json:"-"`
	ConfirmationToken  *string        `bun:"confirmation_token,nullzero" json:"-"`
	ConfirmationSentAt *time.Time     `bun:"confirmation_sent_at,nullzero" json:"confirmation_sent_at,omitempty"`
	ConfirmedAt        *time.Time     `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
	ResetToken         *string        `bun:"reset_token,nullzero" json:"-"`
	ResetSentAt        *time.Time     `bun:"reset_sent_at,nullzero" json:"reset_sent_at,omitempty"`
	Metadata           map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt          *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsConfirmed reports whether the account completed confirmation
func (u *User) IsConfirmed() bool {
	return u != nil && u.ConfirmedAt != nil
}

// HasPendingConfirmation reports whether a confirmation token is in flight
func (u *User) HasPendingConfirmation() bool {
	return u != nil && u.ConfirmationToken != nil
}

// HasPendingReset reports whether a password reset token is in flight
func (u *User) HasPendingReset() bool {
	return u != nil && u.ResetToken != nil
}

// AddMetadata will append information to a metadata attribute
// TODO: make a trigger to merge metadata in database!
// https://stackoverflow.com/a/42954907/125083
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = val
	return u
}
