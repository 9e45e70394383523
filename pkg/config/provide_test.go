package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Postgres Postgres   `koanf:"postgres"`
	Http     HttpServer `koanf:"http"`
}

func TestProvideFromEnv(t *testing.T) {
	t.Setenv("ADBOARD_CONNECTOR__POSTGRES__HOST", "db.local")
	t.Setenv("ADBOARD_CONNECTOR__POSTGRES__PORT", "5432")
	t.Setenv("ADBOARD_CONNECTOR__HTTP__ADDRESS", ":8000")

	cfg := Provide("connector", testConfig{})

	assert.Equal(t, "db.local", cfg.Postgres.Host)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, ":8000", cfg.Http.Address)
}

func TestProvideKeepsDefaults(t *testing.T) {
	cfg := Provide("connector", testConfig{
		Http: HttpServer{Address: ":9000"},
	})

	assert.Equal(t, ":9000", cfg.Http.Address)
}
