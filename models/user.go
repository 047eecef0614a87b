package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// User is the credential record. Password hash, refresh token and the
// single-use tokens are projected out of default reads; see store.UserStore.
type User struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string        `bson:"email" json:"email"`
	PasswordHash    string        `bson:"passwordHash,omitempty" json:"-"` // never expose
	FirstName       string        `bson:"firstName" json:"firstName"`
	LastName        string        `bson:"lastName" json:"lastName"`
	Role            Role          `bson:"role" json:"role"`
	Plan            Plan          `bson:"plan" json:"plan"`
	IsEmailVerified bool          `bson:"isEmailVerified" json:"isEmailVerified"`

	// Single refresh-token slot: overwritten on login/register, cleared on logout.
	RefreshToken string `bson:"refreshToken,omitempty" json:"-"`

	// Present only between registration and email verification.
	VerificationToken string `bson:"verificationToken,omitempty" json:"-"`

	// Reset pair: digest of the emailed token plus its expiry. Both cleared on use.
	ResetPasswordToken   string     `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires *time.Time `bson:"resetPasswordExpires,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the subset of User safe to return to clients.
type PublicUser struct {
	ID              bson.ObjectID `json:"id"`
	Email           string        `json:"email"`
	FirstName       string        `json:"firstName"`
	LastName        string        `json:"lastName"`
	Role            Role          `json:"role"`
	Plan            Plan          `json:"plan"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	CreatedAt       *time.Time    `json:"createdAt,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		Plan:            u.Plan,
		IsEmailVerified: u.IsEmailVerified,
	}
}

// PublicWithCreatedAt is the profile projection (GET /profile/me).
func (u *User) PublicWithCreatedAt() PublicUser {
	p := u.Public()
	created := u.CreatedAt
	p.CreatedAt = &created
	return p
}
