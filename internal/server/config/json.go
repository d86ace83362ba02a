package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/flagx"
	"github.com/dmitrijs2005/teamboard/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "80m" and integer nanoseconds are accepted.
// Absent (zero) fields leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	AppURL           string         `json:"app_url"`
	LogLevel         string         `json:"log_level"`
	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RedisDB          *int           `json:"redis_db"`
	AMQPURL          string         `json:"amqp_url"`
	RateLimitEnabled *bool          `json:"rate_limit_enabled"`
	RateLimitBurst   int            `json:"rate_limit_capacity"`
	RateLimitRefill  timex.Duration `json:"rate_limit_refill_interval"`
	SecretKey        string         `json:"secret_key"`
	InviteSalt       string         `json:"invite_salt"`
	AccessTokenTTL   timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenTTL  timex.Duration `json:"refresh_token_validity_duration"`
	TwoFactorTTL     timex.Duration `json:"two_factor_validity_duration"`
	InviteTTL        timex.Duration `json:"invite_validity_duration"`
	BcryptCost       int            `json:"bcrypt_cost"`
}

// parseJson loads values from the file named by -c/-config, if any.
// An unreadable file or invalid JSON panics: the process cannot start with a
// configuration it was explicitly told to use.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AppURL, c.AppURL)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.Auth.BaseSecret, c.SecretKey)
	setString(&config.Auth.InviteSalt, c.InviteSalt)

	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.RateLimitEnabled != nil {
		config.RateLimit.Enabled = *c.RateLimitEnabled
	}
	if c.RateLimitBurst > 0 {
		config.RateLimit.Capacity = c.RateLimitBurst
	}
	if c.BcryptCost > 0 {
		config.Auth.BcryptCost = c.BcryptCost
	}

	setDuration(&config.RateLimit.RefillInterval, c.RateLimitRefill)
	setDuration(&config.Auth.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&config.Auth.RefreshTokenTTL, c.RefreshTokenTTL)
	setDuration(&config.Auth.TwoFactorTTL, c.TwoFactorTTL)
	setDuration(&config.Auth.InviteTTL, c.InviteTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
