package boards

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

func (r *PostgresRepository) IsMemberAdmin(ctx context.Context, boardID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM board_members
			WHERE board_id = $1 AND user_id = $2 AND role = 'ADMIN'
		)
	`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, boardID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) FindBoardByID(ctx context.Context, boardID, userID string) (*models.Board, error) {
	query := `
		SELECT b.id, b.title, b.created_at
		FROM boards b
		JOIN board_members m ON m.board_id = b.id
		WHERE b.id = $1 AND m.user_id = $2
	`
	board := &models.Board{}
	err := r.db.QueryRowContext(ctx, query, boardID, userID).Scan(&board.ID, &board.Title, &board.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	members, err := r.listMembers(ctx, boardID)
	if err != nil {
		return nil, err
	}
	board.Members = members

	return board, nil
}

func (r *PostgresRepository) listMembers(ctx context.Context, boardID string) ([]models.Membership, error) {
	query := `
		SELECT m.id, m.board_id, m.user_id, u.email, m.role
		FROM board_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.board_id = $1
		ORDER BY m.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	members := make([]models.Membership, 0)
	for rows.Next() {
		var m models.Membership
		var role string
		if err := rows.Scan(&m.ID, &m.BoardID, &m.UserID, &m.Email, &role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return members, nil
}

func (r *PostgresRepository) FindMembershipByEmail(ctx context.Context, boardID, email string) (*models.Membership, error) {
	query := `
		SELECT m.id, m.board_id, m.user_id, u.email, m.role
		FROM board_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.board_id = $1 AND u.email = $2
	`
	m := &models.Membership{}
	var role string
	err := r.db.QueryRowContext(ctx, query, boardID, email).Scan(&m.ID, &m.BoardID, &m.UserID, &m.Email, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.Role = models.Role(role)
	return m, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, boardID, userID string, role models.Role) (*models.Membership, error) {
	query := `
		INSERT INTO board_members (board_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	m := &models.Membership{BoardID: boardID, UserID: userID, Role: role}
	if err := r.db.QueryRowContext(ctx, query, boardID, userID, string(role)).Scan(&m.ID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}
