// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
)

// Credential is a registered account. Email is unique, stored lower-cased.
type Credential struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return e, nil
}
