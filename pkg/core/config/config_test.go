// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-1
fleet:
  prefix: acme
  models:
    - falcon-lite
    - mistral-7b-instruct
schedule:
  enabled: true
  start_cron: "0 8 ? * MON-FRI *"
  stop_cron: "0 20 ? * MON-FRI *"
  timezone: Europe/Paris
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("region = %q", cfg.AWS.Region)
	}
	if len(cfg.Fleet.Models) != 2 {
		t.Errorf("models = %v", cfg.Fleet.Models)
	}
	if !cfg.Schedule.Enabled || cfg.Schedule.Timezone != "Europe/Paris" {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}
	// defaults derived from the prefix
	if cfg.Parameter.Path != "/acme/models" {
		t.Errorf("parameter path = %q", cfg.Parameter.Path)
	}
	if cfg.Schedule.Group != "acme-fleet" {
		t.Errorf("schedule group = %q", cfg.Schedule.Group)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("FLEET_HISTORY_DSN", "postgres://fleet@db:5432/fleet")

	path := writeConfig(t, `
aws:
  region: us-east-1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AWS.Region != "ap-southeast-2" {
		t.Errorf("region = %q, want env override", cfg.AWS.Region)
	}
	if cfg.History.Type != "postgres" || cfg.History.DSN == "" {
		t.Errorf("history = %+v, want postgres via env", cfg.History)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Fleet.Prefix != "chatforge" {
		t.Errorf("prefix = %q", cfg.Fleet.Prefix)
	}
	if cfg.Parameter.Type != "ssm" || cfg.Parameter.Path != "/chatforge/models" {
		t.Errorf("parameter = %+v", cfg.Parameter)
	}
	if cfg.History.Type != "memory" || cfg.Artifacts.Type != "memory" {
		t.Errorf("backends = %q %q", cfg.History.Type, cfg.Artifacts.Type)
	}
	if cfg.Schedule.Timezone != "UTC" {
		t.Errorf("timezone = %q", cfg.Schedule.Timezone)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(*Config) {}, false},
		{"schedule without crons", func(c *Config) { c.Schedule.Enabled = true }, true},
		{"schedule with crons", func(c *Config) {
			c.Schedule.Enabled = true
			c.Schedule.StartCron = "0 8 * * ? *"
			c.Schedule.StopCron = "0 20 * * ? *"
		}, false},
		{"s3 artifacts without bucket", func(c *Config) { c.Artifacts.Type = "s3" }, true},
		{"postgres without dsn", func(c *Config) { c.History.Type = "postgres" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
