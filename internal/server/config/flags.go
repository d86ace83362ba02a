package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/teamboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   base secret for JWT purposes and invite encryption
//	-i string   invite key derivation salt
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u string   public application URL
//	-l string   log level
//	-q string   RabbitMQ URL
//	-R string   Redis address
//
// Notes:
//   - os.Args is first filtered with flagx.FilterArgs so -c/-config and -env
//     (handled elsewhere) do not make parsing fail.
//   - Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-i", "-t", "-r", "-u", "-l", "-q", "-R"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Auth.BaseSecret, "s", config.Auth.BaseSecret, "base secret key")
	fs.StringVar(&config.Auth.InviteSalt, "i", config.Auth.InviteSalt, "invite encryption salt")

	accessTokenTTL := fs.Int("t", int(config.Auth.AccessTokenTTL.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenTTL := fs.Int("r", int(config.Auth.RefreshTokenTTL.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.AppURL, "u", config.AppURL, "public application URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "RabbitMQ URL")
	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "Redis address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.Auth.AccessTokenTTL = time.Duration(*accessTokenTTL) * time.Minute
	config.Auth.RefreshTokenTTL = time.Duration(*refreshTokenTTL) * time.Minute
}
