package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/imdario/mergo"
)

var validate = validator.New()

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Environment string       `yaml:"environment" validate:"required,oneof=production development"`
	Chains      ChainsConfig `yaml:"chains"      validate:"required"`
	NATS        NATSConfig   `yaml:"nats"`
	Cache       CacheConfig  `yaml:"cache"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"            validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	TLS           TLSCfg `yaml:"tls"`
}

type TLSCfg struct {
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	CACert     string `yaml:"ca_cert"`
}

type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	Prefix    string `yaml:"prefix"`
	TTL       string `yaml:"ttl"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	// merge defaults
	for name, chain := range cfg.Chains.Items {
		if err := mergo.Merge(&chain, cfg.Chains.Defaults); err != nil {
			return cfg, err
		}
		cfg.Chains.Items[name] = chain
	}

	// finalize nodes
	if err := cfg.Chains.FinalizeNodes(); err != nil {
		return cfg, err
	}

	// validate
	if err := validate.Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
