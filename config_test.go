/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, true},
		{"cert and key", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, false},
		{"no lives", func(c *Config) { c.lives = 0 }, true},
		{"zero reveal delay", func(c *Config) { c.revealDelay = 0 }, true},
		{"negative reveal delay", func(c *Config) { c.revealDelay = -time.Second }, true},
		{"negative session timeout", func(c *Config) { c.sessionTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestFlagsReadEnvironment(t *testing.T) {
	t.Setenv("HITLINE_LIVES", "5")
	t.Setenv("HITLINE_REVEAL_DELAY", "2s")
	t.Setenv("HITLINE_SCORES_DB", "/tmp/scores.db")

	cfg := &Config{}
	cmd := newCmd(cfg)

	require.NoError(t, cmd.ParseFlags([]string{"--port", "9090"}))

	assert.Equal(t, 5, cfg.lives)
	assert.Equal(t, 2*time.Second, cfg.revealDelay)
	assert.Equal(t, "/tmp/scores.db", cfg.scoresDB)
	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 60*time.Minute, cfg.sessionTimeout)
}
