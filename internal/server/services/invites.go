package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/config"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/notify"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/repomanager"
)

// TokenSealer turns a payload into an opaque token and back.
// cryptox.TokenCrypto satisfies it.
type TokenSealer interface {
	Encrypt(payload any) (string, error)
	Decrypt(token string, v any) error
}

// InviteService runs the board invitation lifecycle:
// no invite -> pending -> accepted, where an expired pending invite is
// renewed in place when the user is invited again.
type InviteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sealer      TokenSealer
	notifier    notify.Notifier
	ttl         time.Duration
	appURL      string
	now         func() time.Time
	logger      logging.Logger
}

func NewInviteService(db *sql.DB, m repomanager.RepositoryManager, sealer TokenSealer, n notify.Notifier, cfg *config.Config, l logging.Logger) *InviteService {
	return &InviteService{
		db:          db,
		repomanager: m,
		sealer:      sealer,
		notifier:    n,
		ttl:         cfg.Auth.InviteTTL,
		appURL:      strings.TrimRight(cfg.AppURL, "/"),
		now:         time.Now,
		logger:      l.With("module", "invites"),
	}
}

// InviteUserToBoard invites email to boardID on behalf of requesterID, who
// must be a board admin, and returns the encrypted invite token.
func (s *InviteService) InviteUserToBoard(ctx context.Context, requesterID, email, boardID string) (string, error) {
	email, err := models.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	boards := s.repomanager.Boards(s.db)

	isAdmin, err := boards.IsMemberAdmin(ctx, boardID, requesterID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !isAdmin {
		return "", common.ErrorForbidden
	}

	board, err := boards.FindBoardByID(ctx, boardID, requesterID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	_, err = boards.FindMembershipByEmail(ctx, boardID, email)
	switch {
	case err == nil:
		return "", common.ErrAlreadyMember
	case !errors.Is(err, common.ErrorNotFound):
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var invite *models.BoardInvite
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		invites := s.repomanager.Invites(tx)
		now := s.now()

		existing, err := invites.FindPendingOrExpired(ctx, email, boardID)
		switch {
		case err == nil && existing.Pending(now):
			return common.ErrPendingInviteExists
		case err == nil:
			invite, err = invites.ExtendExpiry(ctx, existing.ID, now.Add(s.ttl))
			if err != nil {
				return fmt.Errorf("%w: %v", common.ErrorInternal, err)
			}
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		fresh, err := models.NewBoardInvite(email, boardID, now, now.Add(s.ttl))
		if err != nil {
			return err
		}
		invite, err = invites.Create(ctx, fresh)
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrPendingInviteExists
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	token, err := s.sealer.Encrypt(models.InvitePayload{
		Email:    invite.Email,
		InviteID: invite.ID,
		ExpireAt: invite.ExpireAt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.sendInviteEmail(ctx, invite, board, token)

	s.logger.Info(ctx, "invite issued", "board_id", boardID, "invite_id", invite.ID)
	return token, nil
}

func (s *InviteService) sendInviteEmail(ctx context.Context, invite *models.BoardInvite, board *models.Board, token string) {
	vars := map[string]string{
		"board_title": board.Title,
		"accept_url":  s.appURL + "/board/invite/accept?token=" + url.QueryEscape(token),
		"expire_at":   invite.ExpireAt.UTC().Format(time.RFC3339),
	}
	if err := s.notifier.Send(ctx, notify.TemplateBoardInvite, invite.Email, vars); err != nil {
		s.logger.Warn(ctx, "invite email not sent", "invite_id", invite.ID, "error", err)
	}
}

// AcceptInvite makes userID a contributor of the board behind token and
// returns that board. Checks run in order and stop at the first failure.
func (s *InviteService) AcceptInvite(ctx context.Context, userID, token string) (*models.Board, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var payload models.InvitePayload
	if err := s.sealer.Decrypt(token, &payload); err != nil {
		return nil, common.ErrorUnauthorized
	}

	if !strings.EqualFold(payload.Email, user.Email) {
		return nil, common.ErrorUnauthorized
	}

	if payload.Expired(s.now()) {
		return nil, common.ErrInviteExpired
	}

	var board *models.Board
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		invite, err := s.repomanager.Invites(tx).SetAccepted(ctx, payload.InviteID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInviteAlreadyAccepted
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		boards := s.repomanager.Boards(tx)

		if _, err := boards.AddMember(ctx, invite.BoardID, user.ID, models.RoleContributor); err != nil {
			if errors.Is(err, common.ErrorConflict) {
				return common.ErrAlreadyMember
			}
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}

		board, err = boards.FindBoardByID(ctx, invite.BoardID, user.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "invite accepted", "board_id", board.ID, "user_id", user.ID)
	return board, nil
}
