package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/npremz/astrobackoffice/internal/flagx"
	"github.com/npremz/astrobackoffice/internal/timex"
)

// JSONConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "168h" and integer nanoseconds are accepted. Absent fields keep the
// value from the previous layer.
type JSONConfig struct {
	EndpointAddrHTTP *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      *string         `json:"database_dsn"`
	Environment      *string         `json:"environment"`
	SecretKey        *string         `json:"secret_key"`
	CSRFSecret       *string         `json:"csrf_secret"`
	CronSecret       *string         `json:"cron_secret"`
	SessionTTL       *timex.Duration `json:"session_ttl"`
	InvitationTTL    *timex.Duration `json:"invitation_ttl"`
	AllowedOrigins   []string        `json:"allowed_origins"`
	S3RootUser       *string         `json:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	OTelEndpoint     *string         `json:"otel_endpoint"`
}

// parseJSON overlays the file named by -c/-config onto config. No flag means
// nothing to load.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Environment, c.Environment)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.CSRFSecret, c.CSRFSecret)
	setString(&config.CronSecret, c.CronSecret)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.InvitationTTL != nil {
		config.InvitationTTL = c.InvitationTTL.Duration
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OTelEndpoint, c.OTelEndpoint)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
