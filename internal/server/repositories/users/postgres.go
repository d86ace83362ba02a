package users

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

func (r *PostgresRepository) Create(ctx context.Context, user *models.Credential) (*models.Credential, error) {

	query :=
		`INSERT INTO users (email, first_name, last_name, password_hash)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.PasswordHash).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query :=
		`SELECT id, email, first_name, last_name, password_hash, created_at, updated_at FROM users
		 WHERE email = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	query :=
		`SELECT id, email, first_name, last_name, password_hash, created_at, updated_at FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.Credential) (*models.Credential, error) {
	query :=
		`UPDATE users SET first_name = $2, last_name = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING id, email, first_name, last_name, password_hash, created_at, updated_at
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, user.ID, user.FirstName, user.LastName))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Credential, error) {
	user := &models.Credential{}
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
