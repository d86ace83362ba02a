// Package common defines shared constants and sentinel errors used across
// the teamboard server layers. Callers should use errors.Is to match these
// values; specific errors wrap one of the kind errors so a boundary can map
// them by kind while still reporting the specific message.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level error kinds.
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorForbidden        = errors.New("forbidden")
	ErrorBadRequest       = errors.New("bad request")
	ErrorValidation       = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors. Expiry is a special case of an invalid token.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrDecryption   = errors.New("decryption failed")

	// Account errors.
	ErrEmailInUse = fmt.Errorf("%w: email already in use", ErrorConflict)

	// Invitation errors.
	ErrAlreadyMember         = fmt.Errorf("%w: already a member", ErrorBadRequest)
	ErrPendingInviteExists   = fmt.Errorf("%w: pending invitation exists", ErrorForbidden)
	ErrInviteExpired         = fmt.Errorf("%w: invitation has expired", ErrorForbidden)
	ErrInviteAlreadyAccepted = fmt.Errorf("%w: already accepted", ErrorBadRequest)

	// Two-factor errors.
	ErrTwoFactorUnauthenticated = fmt.Errorf("%w: unable to authenticate", ErrorUnauthorized)
	ErrTwoFactorCodeIncorrect   = fmt.Errorf("%w: code incorrect", ErrorUnauthorized)
)
