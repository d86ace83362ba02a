// Package invites stores board invitations and their pending/accepted state.
package invites

import (
	"context"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

type Repository interface {
	// FindPendingOrExpired returns the pending invite for (email, boardID),
	// whether or not it has expired, locking the row. Absent or already
	// accepted invites yield common.ErrorNotFound.
	FindPendingOrExpired(ctx context.Context, email, boardID string) (*models.BoardInvite, error)
	// Create returns common.ErrorConflict when a pending invite for the same
	// (email, board) already exists.
	Create(ctx context.Context, inv *models.BoardInvite) (*models.BoardInvite, error)
	// ExtendExpiry moves a pending invite's ExpireAt forward.
	ExtendExpiry(ctx context.Context, id string, expireAt time.Time) (*models.BoardInvite, error)
	// SetAccepted flips a pending invite to accepted. It is conditional on
	// the invite still being pending: common.ErrorNotFound means another
	// caller accepted it first or it never existed.
	SetAccepted(ctx context.Context, id string) (*models.BoardInvite, error)
}
