// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

// Repository defines operations for issuing, redeeming, and revoking refresh tokens.
type Repository interface {
	// Create stores a newly issued refresh token for ownerID.
	Create(ctx context.Context, ownerID string, token string) error

	// FindByToken looks up a refresh token by its opaque string and locks the
	// row until the surrounding transaction ends. Absent tokens yield
	// common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByID removes one row and reports whether it was this call that
	// removed it. Redemption succeeds only when it returns true.
	DeleteByID(ctx context.Context, id string) (bool, error)

	// DeleteByToken removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	DeleteByToken(ctx context.Context, token string) error
}
