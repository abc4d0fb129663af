package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the campuses the account
// may scope its session to.
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int64    `json:"expires_in"`
	User      UserInfo `json:"user"`
	Campuses  []Campus `json:"campuses"`
}

// SelectCampusRequest scopes the session to one authorized campus.
type SelectCampusRequest struct {
	SelectedCampusID string `json:"selectedCampusId"`
}

// SelectCampusResponse carries the reissued, campus-scoped token.
type SelectCampusResponse struct {
	Token            string `json:"token"`
	SelectedCampusID string `json:"selected_campus_id"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role"`
}

// JWTClaims is the access-token payload. The token is the sole carrier
// of authorization state between requests: it embeds the full
// authorized-campus set and the currently selected campus (empty until
// the user picks one).
type JWTClaims struct {
	UserID           string   `json:"user_id"`
	Email            string   `json:"email"`
	Role             UserRole `json:"role"`
	CampusIDs        []string `json:"campus_ids"`
	SelectedCampusID string   `json:"selected_campus_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthorizedFor reports whether the claims grant access to the campus.
func (c *JWTClaims) AuthorizedFor(campusID string) bool {
	for _, id := range c.CampusIDs {
		if id == campusID {
			return true
		}
	}
	return false
}
