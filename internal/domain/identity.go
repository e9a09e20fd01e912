package domain

import "strings"

// Identity is the authenticated user as extracted from the login provider's token.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate reports whether the identity carries an email usable as a quota key.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.Email) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// DisplayName prefers the name and falls back to the email.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return i.Email
}
