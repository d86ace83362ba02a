// Package httpapi exposes the auth and board-invitation services over
// HTTP with echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/teamboard/internal/logging"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/notify"
	"github.com/dmitrijs2005/teamboard/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type AuthAPI interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.Credential, error)
	UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*models.Credential, error)
}

type TwoFactorAPI interface {
	Generate(ctx context.Context, userID, email string, kind models.TwoFactorType, expireAt time.Time) (*models.TwoFactorChallenge, error)
	Validate(ctx context.Context, userID, token, code string) error
}

type InviteAPI interface {
	InviteUserToBoard(ctx context.Context, requesterID, email, boardID string) (string, error)
	AcceptInvite(ctx context.Context, userID, token string) (*models.Board, error)
}

// TokenVerifier checks signed tokens; *auth.Issuer implements it.
type TokenVerifier interface {
	Verify(token string, purpose auth.Purpose) (*auth.Claims, error)
}

// Deps are the collaborators the HTTP surface calls into.
type Deps struct {
	Auth      AuthAPI
	TwoFactor TwoFactorAPI
	Invites   InviteAPI
	Verifier  TokenVerifier
	Notifier  notify.Notifier
	Limiter   *RateLimiter
}

type Server struct {
	address   string
	echo      *echo.Echo
	auth      AuthAPI
	twoFactor TwoFactorAPI
	invites   InviteAPI
	verifier  TokenVerifier
	notifier  notify.Notifier
	limiter   *RateLimiter
	logger    logging.Logger
}

func NewServer(address string, d Deps, l logging.Logger) *Server {
	s := &Server{
		address:   address,
		auth:      d.Auth,
		twoFactor: d.TwoFactor,
		invites:   d.Invites,
		verifier:  d.Verifier,
		notifier:  d.Notifier,
		limiter:   d.Limiter,
		logger:    l.With("module", "http_server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = ozzoValidator{}
	e.HTTPErrorHandler = s.errorHandler
	e.Use(s.requestLogger)

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)

	a := s.echo.Group("/auth", s.limiter.Middleware)
	a.POST("/signup", s.signup)
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)

	a.GET("/me", s.me, s.requireAccessToken)
	a.PUT("/profile", s.updateProfile, s.requireAccessToken)
	a.POST("/2fa/generate", s.generateTwoFactor, s.requireAccessToken)
	a.POST("/2fa/verify", s.verifyTwoFactor, s.requireAccessToken)

	b := s.echo.Group("/board", s.requireAccessToken)
	b.POST("/invite/new", s.inviteUser)
	b.PUT("/invite/accept", s.acceptInvite)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- s.echo.Start(s.address)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ozzoValidator lets c.Validate run the DTO's own rules.
type ozzoValidator struct{}

func (ozzoValidator) Validate(i any) error {
	return validation.Validate(i)
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(dst)
}
