package config

import "github.com/adboard-io/adboard-engine/pkg/config"

type ConnectorConfig struct {
	Postgres  config.Postgres       `koanf:"postgres"`
	Http      config.HttpServer     `koanf:"http"`
	Vault     config.Vault          `koanf:"vault"`
	NATS      config.NATS           `koanf:"nats"`
	Ingestion config.AdboardService `koanf:"ingestion"`

	// OAuth applications registered per provider, keyed by provider type
	// (google-ads, google-analytics, ...). Consumed by the dashboard's
	// consent flow, not by this service directly.
	OAuth map[string]config.OAuthApp `koanf:"oauth"`
}
