// Package users declares and implements storage of account credentials.
package users

import (
	"context"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

// Repository stores credentials. Lookups of an absent row return
// common.ErrorNotFound; a duplicate email on Create returns common.ErrorConflict.
type Repository interface {
	Create(ctx context.Context, user *models.Credential) (*models.Credential, error)
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	FindByID(ctx context.Context, id string) (*models.Credential, error)
	// Update writes the profile fields (names) and bumps updated_at.
	Update(ctx context.Context, user *models.Credential) (*models.Credential, error)
}
