package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment variable read by the server.
const EnvPrefix = "TEAMBOARD_"

// loadDotEnv loads the file given by -env, or ./.env when present.
// Variables already set in the process environment win over the file.
func loadDotEnv() error {
	if path := flagx.EnvFileFlags(); path != "" {
		return godotenv.Load(path)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseEnv overlays TEAMBOARD_* variables. Malformed numbers, booleans or
// durations panic, mirroring parseJson.
func parseEnv(config *Config) {
	if err := loadDotEnv(); err != nil {
		panic(fmt.Errorf("load env file: %w", err))
	}
	if err := applyEnv(config, os.LookupEnv); err != nil {
		panic(err)
	}
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	strs := map[string]*string{
		"HTTP_ADDR":      &config.EndpointAddrHTTP,
		"GRPC_ADDR":      &config.EndpointAddrGRPC,
		"DATABASE_DSN":   &config.DatabaseDSN,
		"APP_URL":        &config.AppURL,
		"LOG_LEVEL":      &config.LogLevel,
		"REDIS_ADDR":     &config.RedisAddr,
		"REDIS_PASSWORD": &config.RedisPassword,
		"AMQP_URL":       &config.AMQPURL,
		"SECRET_KEY":     &config.Auth.BaseSecret,
		"INVITE_SALT":    &config.Auth.InviteSalt,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":            &config.RedisDB,
		"RATE_LIMIT_CAPACITY": &config.RateLimit.Capacity,
		"BCRYPT_COST":         &config.Auth.BcryptCost,
	}
	for key, dst := range ints {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid int for %s%s: %q", EnvPrefix, key, v)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"RATE_LIMIT_REFILL_INTERVAL": &config.RateLimit.RefillInterval,
		"ACCESS_TOKEN_TTL":           &config.Auth.AccessTokenTTL,
		"REFRESH_TOKEN_TTL":          &config.Auth.RefreshTokenTTL,
		"TWO_FACTOR_TTL":             &config.Auth.TwoFactorTTL,
		"INVITE_TTL":                 &config.Auth.InviteTTL,
	}
	for key, dst := range durations {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration for %s%s: %q", EnvPrefix, key, v)
			}
			*dst = d
		}
	}

	if v, ok := get("RATE_LIMIT_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid bool for %sRATE_LIMIT_ENABLED: %q", EnvPrefix, v)
		}
		config.RateLimit.Enabled = b
	}

	return nil
}
