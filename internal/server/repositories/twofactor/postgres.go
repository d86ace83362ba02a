package twofactor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.TwoFactorRecord) (*models.TwoFactorRecord, error) {
	query := `
		INSERT INTO two_factor_tokens (owner_id, token, verification_code, type, expire_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.OwnerID, rec.Token, rec.VerificationCode, string(rec.Type), rec.ExpireAt).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.TwoFactorRecord, error) {
	query := `
		SELECT id, owner_id, token, verification_code, type, expire_at, created_at
		FROM two_factor_tokens
		WHERE token = $1
	`
	rec := &models.TwoFactorRecord{}
	var typ string
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.ID, &rec.OwnerID, &rec.Token, &rec.VerificationCode, &typ, &rec.ExpireAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Type = models.TwoFactorType(typ)
	return rec, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	query := `
		DELETE FROM two_factor_tokens
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
