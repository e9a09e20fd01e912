package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ankitjc/prompt-polish/internal/domain"
)

// ErrMalformedToken is returned when an ID token cannot be decoded.
var ErrMalformedToken = errors.New("session: malformed id token")

// IDTokenClaims are the OpenID Connect claims read from a login token.
type IDTokenClaims struct {
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Identity applies the display name fallbacks of IdentityFromClaims.
func (c *IDTokenClaims) Identity() domain.Identity {
	return IdentityFromClaims(c.Name, c.GivenName, c.Email)
}

// DecodeIDToken extracts the identity from a login provider ID token without
// checking its signature. Use google.Verifier when the token must be trusted.
func DecodeIDToken(token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, fmt.Errorf("%w: empty", ErrMalformedToken)
	}
	claims := &IDTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	id := claims.Identity()
	if err := id.Validate(); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// IdentityFromClaims picks the display name: name, then given_name, then the
// local part of the email.
func IdentityFromClaims(name, givenName, email string) domain.Identity {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(givenName)
	}
	if name == "" {
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}
	return domain.Identity{Name: name, Email: email}
}
