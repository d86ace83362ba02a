package httpapi

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/teamboard/internal/server/models"
	"github.com/dmitrijs2005/teamboard/internal/server/services"
)

type signupRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(services.MinPasswordLength, 72)),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r refreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r profileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
	)
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newProfileResponse(c *models.Credential) profileResponse {
	return profileResponse{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type twoFactorGenerateRequest struct {
	Type string `json:"type"`
}

func (r twoFactorGenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		// Credentials carry no phone number, so codes can only go out by email.
		validation.Field(&r.Type, validation.In(string(models.TwoFactorEmail)).Error("only EMAIL delivery is supported")),
	)
}

type twoFactorVerifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

func (r twoFactorVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Code, validation.Required, validation.Length(services.VerificationCodeLength, services.VerificationCodeLength), is.Digit),
	)
}

type inviteRequest struct {
	Email   string `json:"email"`
	BoardID string `json:"board_id"`
}

func (r inviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.BoardID, validation.Required, is.UUID),
	)
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
