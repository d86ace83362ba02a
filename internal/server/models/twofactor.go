package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
)

// TwoFactorType is the delivery channel of a verification code.
type TwoFactorType string

const (
	TwoFactorEmail TwoFactorType = "EMAIL"
	TwoFactorSMS   TwoFactorType = "SMS"
)

// ParseTwoFactorType accepts "EMAIL" or "SMS".
func ParseTwoFactorType(s string) (TwoFactorType, error) {
	switch t := TwoFactorType(s); t {
	case TwoFactorEmail, TwoFactorSMS:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown two-factor type %q", common.ErrorValidation, s)
}

// TwoFactorRecord is a pending verification challenge.
type TwoFactorRecord struct {
	ID               string
	OwnerID          string
	Token            string
	VerificationCode string
	Type             TwoFactorType
	ExpireAt         time.Time
	CreatedAt        time.Time
}

// Expired reports whether now is past ExpireAt.
func (r *TwoFactorRecord) Expired(now time.Time) bool {
	return now.After(r.ExpireAt)
}

// TwoFactorChallenge is what Generate hands back: the token goes to the
// caller, the code goes out of band.
type TwoFactorChallenge struct {
	Token string
	Code  string
}
