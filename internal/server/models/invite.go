package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
)

// BoardInvite is a time-boxed invitation of an email address to a board.
//
// Lifecycle: pending (IsPending, ExpireAt in the future) -> accepted
// (IsPending false). A pending invite past ExpireAt is expired and may be
// renewed by moving ExpireAt forward.
type BoardInvite struct {
	ID        string
	Email     string
	BoardID   string
	ExpireAt  time.Time
	IsPending bool
	CreatedAt time.Time
}

// NewBoardInvite builds a pending invite. ExpireAt must be after createdAt.
func NewBoardInvite(email, boardID string, createdAt, expireAt time.Time) (*BoardInvite, error) {
	if email == "" || boardID == "" {
		return nil, fmt.Errorf("%w: email and board id are required", common.ErrorValidation)
	}
	if !expireAt.After(createdAt) {
		return nil, fmt.Errorf("%w: invite must expire after it is created", common.ErrorValidation)
	}
	return &BoardInvite{
		Email:     email,
		BoardID:   boardID,
		ExpireAt:  expireAt,
		IsPending: true,
		CreatedAt: createdAt,
	}, nil
}

// Expired reports whether the invite's validity window has passed.
func (i *BoardInvite) Expired(now time.Time) bool {
	return !now.Before(i.ExpireAt)
}

// Pending reports whether the invite can still be accepted.
func (i *BoardInvite) Pending(now time.Time) bool {
	return i.IsPending && !i.Expired(now)
}

// InvitePayload is the plaintext sealed inside an invite token.
type InvitePayload struct {
	Email    string    `json:"email"`
	InviteID string    `json:"inviteId"`
	ExpireAt time.Time `json:"expireAt"`
}

// Expired reports whether the invite carried by the payload has lapsed.
func (p *InvitePayload) Expired(now time.Time) bool {
	return !now.Before(p.ExpireAt)
}
