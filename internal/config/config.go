package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application.
type Config struct {
	// Hostname is the public hostname where this service is reachable (used for did:web).
	Hostname string `env:"FEEDGEN_HOSTNAME" envDefault:"localhost"`

	// Port is the HTTP server port.
	Port int `env:"PORT" envDefault:"3000"`

	// PublisherDID is the DID of the account that published the feed generator record.
	PublisherDID string `env:"FEEDGEN_PUBLISHER_DID,required,notEmpty"`

	// SQLitePath is the location of the SQLite database file.
	SQLitePath string `env:"FEEDGEN_SQLITE_LOCATION" envDefault:"likesback.db"`

	// FirehoseURL is the Jetstream WebSocket endpoint.
	FirehoseURL string `env:"FEEDGEN_FIREHOSE_URL" envDefault:"wss://jetstream1.us-east.bsky.network/subscribe"`

	// PDSHost is the PDS used for login and author feed fetches.
	PDSHost string `env:"BSKY_PDS" envDefault:"https://bsky.social"`

	// Identifier is the handle used to authenticate author feed fetches.
	Identifier string `env:"BSKY_IDENTIFIER"`

	// AppPassword is the App Password for Identifier.
	AppPassword string `env:"BSKY_APP_PASSWORD"`
}

// ServiceDID returns the did:web for this feed generator based on the hostname.
func (c *Config) ServiceDID() string {
	return "did:web:" + c.Hostname
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
