package model

import "time"

// LocalUserID is the single identity used when the tracker runs in local mode.
const LocalUserID = "local"

// User is an account known to the remote identity provider.
type User struct {
	UserID             string    `bson:"user_id" json:"user_id"`
	Email              string    `bson:"email" json:"email" validate:"required,email"`
	Password           string    `bson:"password" json:"-"` // argon2id hash
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
	LastPasswordChange time.Time `bson:"last_password_change,omitempty" json:"-"`
}
