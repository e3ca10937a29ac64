package rumproxy

import (
	"fmt"
	"os"
	"time"

	responsetransformer "github.com/aemlive/rum-proxy/pkg/response-transformer"
	"github.com/aemlive/rum-proxy/store"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file.
type FileConfig struct {
	// Origin URL of the dashboard, e.g. https://main--helix-website--adobe.aem.live
	Origin           string            `yaml:"origin"`
	PublicURL        string            `yaml:"publicUrl"`
	PlaceholderURL   string            `yaml:"placeholderUrl"`
	GenerationBudget time.Duration     `yaml:"generationBudget"`
	MetricsPath      string            `yaml:"metricsPath"`
	Render           FileRenderConfig  `yaml:"render"`
	DomainKeys       FileDomainKeys    `yaml:"domainKeys"`
	Redis            store.RedisConfig `yaml:"redis"`
	// Header rules for pages passed through from the origin.
	Rules responsetransformer.Rules `yaml:"rules"`
}

type FileRenderConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Strategy string        `yaml:"strategy"`
	Category string        `yaml:"category"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FileDomainKeys struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EnvConfig holds secrets, which are only read from the environment.
type EnvConfig struct {
	PSIKey        string `env:"PSI_KEY,required"`
	RedisAddr     string `env:"RUM_PROXY_REDIS_ADDR"`
	RedisPassword string `env:"RUM_PROXY_REDIS_PASSWORD"`
}

// GetConfig reads the configuration file. An empty filename yields the zero config.
func GetConfig(filename string) (FileConfig, error) {
	var config FileConfig
	if filename == "" {
		return config, nil
	}
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, fmt.Errorf("parse %s: %w", filename, err)
	}
	return config, nil
}

// GetEnv reads the environment. PSI_KEY must be set.
func GetEnv() (EnvConfig, error) {
	var config EnvConfig
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}
	return config, nil
}
