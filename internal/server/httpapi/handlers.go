package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/notify"
	"github.com/dmitrijs2005/teamboard/internal/server/services"
)

func (s *Server) health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := s.auth.Signup(c.Request().Context(), services.SignupInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pair)
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := s.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) logout(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	cred, err := s.auth.Me(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProfileResponse(cred))
}

func (s *Server) updateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cred, err := s.auth.UpdateProfile(c.Request().Context(), userID(c), req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProfileResponse(cred))
}

// generateTwoFactor returns the challenge token to the caller and sends the
// code out of band.
func (s *Server) generateTwoFactor(c echo.Context) error {
	var req twoFactorGenerateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	kind := models.TwoFactorEmail
	if req.Type != "" {
		kind = models.TwoFactorType(req.Type)
	}

	ctx := c.Request().Context()
	email := userEmail(c)

	challenge, err := s.twoFactor.Generate(ctx, userID(c), email, kind, time.Time{})
	if err != nil {
		return err
	}

	if err := s.notifier.Send(ctx, notify.TemplateTwoFactorCode, email, map[string]string{
		"code": challenge.Code,
		"type": string(kind),
	}); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, tokenResponse{Token: challenge.Token})
}

func (s *Server) verifyTwoFactor(c echo.Context) error {
	var req twoFactorVerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.twoFactor.Validate(c.Request().Context(), userID(c), req.Token, req.Code); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) inviteUser(c echo.Context) error {
	var req inviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.invites.InviteUserToBoard(c.Request().Context(), userID(c), req.Email, req.BoardID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) acceptInvite(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	board, err := s.invites.AcceptInvite(c.Request().Context(), userID(c), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, board)
}
