package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	clientServerEnvVar = "TENANT_ADMIN_SERVER"
	clientConfigDir    = ".tenant-admin"
)

// ClientConfig configures the session client and the adminctl CLI.
type ClientConfig struct {
	Server           string        `yaml:"server"`
	CredentialsPath  string        `yaml:"credentials_path"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	LogLevel         string        `yaml:"log_level"`
}

// DefaultClientConfigPath returns ~/.tenant-admin/config.yaml
func DefaultClientConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "[config] find home directory")
	}
	return filepath.Join(home, clientConfigDir, "config.yaml"), nil
}

// LoadClientConfig reads the YAML file at path. A missing file is not an
// error; defaults are applied to every unset field.
func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return ClientConfig{}, errors.Wrapf(err, "[LoadClientConfig] parse %s", path)
			}
		case !os.IsNotExist(err):
			return ClientConfig{}, errors.Wrapf(err, "[LoadClientConfig] read %s", path)
		}
	}
	if err := cfg.applyDefaults(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c *ClientConfig) applyDefaults() error {
	if s := os.Getenv(clientServerEnvVar); s != "" {
		c.Server = s
	}
	if c.Server == "" {
		c.Server = "http://localhost:8080"
	}
	if c.CredentialsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "[config] find home directory")
		}
		c.CredentialsPath = filepath.Join(home, clientConfigDir, "credentials.json")
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = DefaultRefreshThreshold
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	return nil
}
