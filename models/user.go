package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	UserID            string    `json:"userid" bson:"userid"`
	Username          string    `json:"username" bson:"username"`
	Email             string    `json:"email" bson:"email"`
	Password          string    `json:"-" bson:"password,omitempty"`
	Role              Role      `json:"role" bson:"role"`
	GoogleID          string    `json:"google_id,omitempty" bson:"google_id,omitempty"`
	Avatar            string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Verified          bool      `json:"verified" bson:"verified"`
	VerificationToken string    `json:"-" bson:"verification_token,omitempty"`
	Orders            []string  `json:"orders" bson:"orders"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	LastLogin         time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}
