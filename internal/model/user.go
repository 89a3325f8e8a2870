package model

import (
	"github.com/jwalitptl/emergency-notifier/pkg/optional"
)

// User role constants
const (
	UserRoleResident  = "resident"
	UserRoleResponder = "responder"
	UserRoleAdmin     = "admin"
)

// User is a roster entry. The notifier only reads FCMToken and clears it
// when the delivery service rejects it.
type User struct {
	Base
	Email    string  `json:"email" db:"email"`
	FCMToken *string `json:"fcmToken,omitempty" db:"fcm_token"`
	Role     string  `json:"role" db:"role"`
	IsAdmin  bool    `json:"isAdmin" db:"is_admin"`
}

// Token returns the user's delivery token, None when missing or blank.
func (u *User) Token() optional.Option[string] {
	if u == nil || u.FCMToken == nil {
		return optional.None[string]()
	}
	return optional.NonEmpty(*u.FCMToken)
}
