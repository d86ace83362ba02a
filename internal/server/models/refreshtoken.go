package models

import "time"

// RefreshToken is one issued, not yet redeemed refresh token.
type RefreshToken struct {
	ID        string
	Token     string
	OwnerID   string
	CreatedAt time.Time
}

// TokenPair is returned by signup, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
