package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/server/auth"
)

// Context keys set by requireAccessToken.
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
)

const headerRequestID = "X-Request-Id"

// requireAccessToken accepts "Authorization: Bearer <access token>" and
// stores the token's subject and email in the echo context.
func (s *Server) requireAccessToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))

		claims, err := s.verifier.Verify(raw, auth.PurposeAccess)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxEmail, claims.Email)
		return next(c)
	}
}

// requestLogger tags every request with an id and logs its outcome.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		id := req.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(headerRequestID, id)

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(req.Context(), "http request",
			"request_id", id,
			"method", req.Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"latency", time.Since(start),
		)
		return nil
	}
}

func userID(c echo.Context) string {
	v, _ := c.Get(ctxUserID).(string)
	return v
}

func userEmail(c echo.Context) string {
	v, _ := c.Get(ctxEmail).(string)
	return v
}
