// Package services contains server-side business logic. This file implements
// AuthService, which handles signup, login, refresh-token rotation and logout
// plus the account profile.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
	"github.com/dmitrijs2005/teamboard/internal/server/config"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Signup accepts.
const MinPasswordLength = 8

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AuthService provides authentication-related operations:
//   - Signup: create a credential and mint the first token pair
//   - Login: verify a password and mint a token pair
//   - Refresh: redeem a refresh token exactly once for a new pair
//   - Logout: revoke a refresh token
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	cfg         config.AuthConfig
	dummyHash   []byte
	logger      logging.Logger
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config, l logging.Logger) *AuthService {
	// compared against on unknown emails so both login paths cost one bcrypt run
	password, err := common.MakeRandHexString(16)
	if err != nil {
		password = "teamboard-dummy-password"
	}
	logger := l.With("module", "auth")
	dummy, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Auth.BcryptCost)
	if err != nil {
		// config.Validate keeps the cost in range, so this only happens when it was skipped
		logger.Warn(context.Background(), "dummy hash uses default cost", "cost", cfg.Auth.BcryptCost, "error", err)
		dummy, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	}

	return &AuthService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		cfg:         cfg.Auth,
		dummyHash:   dummy,
		logger:      logger,
	}
}

// Signup registers a new account and returns its first token pair. The
// credential row and the refresh token row are written in one transaction.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.TokenPair, error) {
	email, err := models.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, MinPasswordLength)
	}

	_, err = s.repomanager.Users(s.db).FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrEmailInUse
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", common.ErrorValidation)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var pair *models.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.Credential{
			Email:        email,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrEmailInUse
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user signed up", "email", email)
	return pair, nil
}

// Login verifies the password for email and returns a new TokenPair.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	normalized, err := models.NormalizeEmail(email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	return s.issuePair(ctx, s.db, user)
}

// Refresh redeems refreshToken and returns a new pair. The stored row is
// locked, deleted and replaced inside one transaction; only the caller whose
// delete removes the row succeeds, so a token is honored at most once. Any
// failure, storage errors included, is reported as ErrInvalidCredentials.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.issuer.Verify(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	var pair *models.TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tokens := s.repomanager.RefreshTokens(tx)

		rec, err := tokens.FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		if rec.OwnerID != claims.Subject {
			return common.ErrInvalidCredentials
		}

		deleted, err := tokens.DeleteByID(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		if !deleted {
			return common.ErrInvalidCredentials
		}

		user, err := s.repomanager.Users(tx).FindByID(ctx, rec.OwnerID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrInvalidCredentials) {
			s.logger.Error(ctx, "refresh failed", "error", err)
		}
		// every failure looks the same to the caller
		return nil, common.ErrInvalidCredentials
	}

	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return nil
}

// Me returns the credential of userID.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.Credential, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}

// UpdateProfile replaces the first and last name of userID.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*models.Credential, error) {
	user, err := s.repomanager.Users(s.db).Update(ctx, &models.Credential{
		ID:        userID,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}

// --- helpers below ---

func (s *AuthService) issuePair(ctx context.Context, db dbx.DBTX, user *models.Credential) (*models.TokenPair, error) {
	access, err := s.issuer.Sign(user.ID, user.Email, auth.PurposeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	refresh, err := s.issuer.Sign(user.ID, user.Email, auth.PurposeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
