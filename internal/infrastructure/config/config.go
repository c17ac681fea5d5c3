package config

import "github.com/kelseyhightower/envconfig"

// Database holds libsql database configuration. AuthToken is optional
// for local file-backed databases.
type Database struct {
	URL       string `envconfig:"VARIANCE_DATABASE_URL" required:"true"`
	AuthToken string `envconfig:"VARIANCE_AUTH_TOKEN"`
}

// Engine holds configuration for the experiment engine CLI.
type Engine struct {
	Database   Database
	OrgID      string  `envconfig:"VARIANCE_ORG_ID"`
	Verbose    bool    `envconfig:"VARIANCE_VERBOSE" default:"false"`
	Confidence float64 `envconfig:"VARIANCE_CONFIDENCE_LEVEL" default:"0.95"`
}

// LoadEngine loads engine configuration from environment variables.
func LoadEngine() (*Engine, error) {
	var cfg Engine
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
