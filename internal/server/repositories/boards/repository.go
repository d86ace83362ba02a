// Package boards exposes the board membership queries the invitation
// workflow relies on. Board CRUD itself lives elsewhere.
package boards

import (
	"context"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

type Repository interface {
	// IsMemberAdmin reports whether userID holds the ADMIN role on boardID.
	IsMemberAdmin(ctx context.Context, boardID, userID string) (bool, error)
	// FindBoardByID returns the board with its members, as seen by userID.
	// Boards userID is not a member of are reported as common.ErrorNotFound.
	FindBoardByID(ctx context.Context, boardID, userID string) (*models.Board, error)
	// FindMembershipByEmail returns common.ErrorNotFound when the address
	// has no membership on boardID.
	FindMembershipByEmail(ctx context.Context, boardID, email string) (*models.Membership, error)
	// AddMember returns common.ErrorConflict when userID is already a member.
	AddMember(ctx context.Context, boardID, userID string, role models.Role) (*models.Membership, error)
}
