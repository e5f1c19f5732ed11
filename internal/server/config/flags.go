package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/npremz/astrobackoffice/internal/flagx"
)

// parseFlags overlays short command-line flags onto config.
//
//	-a string   HTTP bind address (":8080")
//	-o string   ops gRPC bind address (":50051")
//	-d string   PostgreSQL DSN
//	-m string   environment: development | production
//	-s string   invitation token secret
//	-x string   CSRF secret
//	-k string   cron / ops bearer secret
//	-t int      session ttl, minutes
//	-i int      invitation ttl, minutes
//	-r string   comma separated allowed CORS origins
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   OTLP/HTTP endpoint
//
// Only these flags are looked at; everything else in args is ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-o", "-d", "-m", "-s", "-x", "-k", "-t", "-i", "-r",
		"-u", "-p", "-b", "-g", "-e", "-l",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "o", config.EndpointAddrGRPC, "ops gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Environment, "m", config.Environment, "environment (development|production)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "invitation token secret")
	fs.StringVar(&config.CSRFSecret, "x", config.CSRFSecret, "CSRF secret")
	fs.StringVar(&config.CronSecret, "k", config.CronSecret, "cron secret")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session ttl (in minutes)")
	invitationTTL := fs.Int("i", int(config.InvitationTTL.Minutes()), "invitation ttl (in minutes)")
	origins := fs.String("r", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins, comma separated")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.OTelEndpoint, "l", config.OTelEndpoint, "OTLP/HTTP endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
	config.InvitationTTL = time.Duration(*invitationTTL) * time.Minute
	config.AllowedOrigins = splitOrigins(*origins)

	return nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
