package invites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

const inviteColumns = `id, email, board_id, expire_at, is_pending, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindPendingOrExpired(ctx context.Context, email, boardID string) (*models.BoardInvite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM board_invites
		WHERE email = $1 AND board_id = $2 AND is_pending
		FOR UPDATE
	`
	return scanInvite(r.db.QueryRowContext(ctx, query, email, boardID))
}

func (r *PostgresRepository) Create(ctx context.Context, inv *models.BoardInvite) (*models.BoardInvite, error) {
	query := `
		INSERT INTO board_invites (email, board_id, expire_at, is_pending, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING ` + inviteColumns

	got, err := scanInvite(r.db.QueryRowContext(ctx, query, inv.Email, inv.BoardID, inv.ExpireAt, inv.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, err
	}
	return got, nil
}

func (r *PostgresRepository) ExtendExpiry(ctx context.Context, id string, expireAt time.Time) (*models.BoardInvite, error) {
	query := `
		UPDATE board_invites SET expire_at = $2
		WHERE id = $1 AND is_pending
		RETURNING ` + inviteColumns

	return scanInvite(r.db.QueryRowContext(ctx, query, id, expireAt))
}

func (r *PostgresRepository) SetAccepted(ctx context.Context, id string) (*models.BoardInvite, error) {
	query := `
		UPDATE board_invites SET is_pending = FALSE
		WHERE id = $1 AND is_pending
		RETURNING ` + inviteColumns

	return scanInvite(r.db.QueryRowContext(ctx, query, id))
}

func scanInvite(row *sql.Row) (*models.BoardInvite, error) {
	inv := &models.BoardInvite{}
	err := row.Scan(&inv.ID, &inv.Email, &inv.BoardID, &inv.ExpireAt, &inv.IsPending, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}
