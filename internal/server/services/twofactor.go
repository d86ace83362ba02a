package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
	"github.com/dmitrijs2005/teamboard/internal/server/config"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/repomanager"
)

// VerificationCodeLength is the number of digits in a two-factor code.
const VerificationCodeLength = 8

// TwoFactorService issues short-lived verification challenges and checks
// the codes sent back. A challenge can be satisfied at most once.
type TwoFactorService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	ttl         time.Duration
	now         func() time.Time
	logger      logging.Logger
}

func NewTwoFactorService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config, l logging.Logger) *TwoFactorService {
	return &TwoFactorService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		ttl:         cfg.Auth.TwoFactorTTL,
		now:         time.Now,
		logger:      l.With("module", "twofactor"),
	}
}

// Generate stores a new challenge for userID. A zero expireAt means
// now plus the configured two-factor lifetime.
func (s *TwoFactorService) Generate(ctx context.Context, userID, email string, kind models.TwoFactorType, expireAt time.Time) (*models.TwoFactorChallenge, error) {
	if _, err := models.ParseTwoFactorType(string(kind)); err != nil {
		return nil, err
	}
	if expireAt.IsZero() {
		expireAt = s.now().Add(s.ttl)
	}

	code, err := common.RandomDigits(VerificationCodeLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	token, err := s.issuer.Sign(userID, email, auth.PurposeTwoFactor, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	_, err = s.repomanager.TwoFactor(s.db).Create(ctx, &models.TwoFactorRecord{
		OwnerID:          userID,
		Token:            token,
		VerificationCode: code,
		Type:             kind,
		ExpireAt:         expireAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &models.TwoFactorChallenge{Token: token, Code: code}, nil
}

// Validate checks code against the challenge identified by token.
//
// Order of checks:
//  1. token signature, purpose and expiry, then token subject == userID
//  2. the challenge still exists and is not past its stored expiry
//  3. the code matches; a mismatch keeps the challenge for another try
//  4. the challenge is deleted; losing that race to a concurrent caller fails
func (s *TwoFactorService) Validate(ctx context.Context, userID, token, code string) error {
	claims, err := s.issuer.Verify(token, auth.PurposeTwoFactor)
	if err != nil {
		return common.ErrTwoFactorUnauthenticated
	}
	if claims.Subject != userID {
		return common.ErrorForbidden
	}

	repo := s.repomanager.TwoFactor(s.db)

	rec, err := repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrTwoFactorUnauthenticated
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if rec.OwnerID != userID {
		return common.ErrTwoFactorUnauthenticated
	}

	if rec.Expired(s.now()) {
		if _, err := repo.DeleteByID(ctx, rec.ID); err != nil {
			s.logger.Warn(ctx, "failed to drop expired challenge", "id", rec.ID, "error", err)
		}
		return common.ErrTwoFactorUnauthenticated
	}

	if subtle.ConstantTimeCompare([]byte(rec.VerificationCode), []byte(code)) != 1 {
		return common.ErrTwoFactorCodeIncorrect
	}

	deleted, err := repo.DeleteByID(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !deleted {
		return common.ErrTwoFactorUnauthenticated
	}

	return nil
}
