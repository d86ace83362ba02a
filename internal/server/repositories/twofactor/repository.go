// Package twofactor stores pending two-factor verification challenges.
package twofactor

import (
	"context"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.TwoFactorRecord) (*models.TwoFactorRecord, error)
	// FindByToken returns common.ErrorNotFound when no challenge uses token.
	FindByToken(ctx context.Context, token string) (*models.TwoFactorRecord, error)
	// DeleteByID reports whether this call removed the row.
	DeleteByID(ctx context.Context, id string) (bool, error)
}
