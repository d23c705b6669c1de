package config

import (
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
)

type ChainType string

const (
	ChainTypeEVM    ChainType = "evm"
	ChainTypeTron   ChainType = "tron"
	ChainTypeSolana ChainType = "solana"
)

type ChainsConfig struct {
	Defaults ChainConfig            `yaml:"defaults" validate:"-"`
	Items    map[string]ChainConfig `yaml:",inline"  validate:"required,dive,keys,required,endkeys,required"`
}

// UnmarshalYAML splits out "defaults" from inline chain entries
func (c *ChainsConfig) UnmarshalYAML(b []byte) error {
	var raw map[string]ChainConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]ChainConfig{}
	}
	if def, ok := raw["defaults"]; ok {
		c.Defaults = def
		delete(raw, "defaults")
	} else {
		c.Defaults = ChainConfig{}
	}
	c.Items = raw
	return nil
}

type ChainConfig struct {
	Name   string    `yaml:"name"   validate:"required"`
	Type   ChainType `yaml:"type"   validate:"required,oneof=evm tron solana"`
	Nodes  []Node    `yaml:"nodes"  validate:"required,min=1,dive"`
	Client ClientCfg `yaml:"client"`
}

type ClientCfg struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	JitterMin  float64       `yaml:"jitter_min" validate:"omitempty,gt=0"`
	JitterMax  float64       `yaml:"jitter_max" validate:"omitempty,gtefield=JitterMin"`
	BatchSize  int           `yaml:"batch_size"`
	Throttle   ThrottleCfg   `yaml:"throttle"`
}

type ThrottleCfg struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

func (c *ChainsConfig) GetAllChainNames() []string {
	names := make([]string, 0, len(c.Items))
	for name := range c.Items {
		names = append(names, name)
	}
	return names
}

func (c *ChainsConfig) GetChain(chain string) (ChainConfig, error) {
	if cc, ok := c.Items[chain]; ok {
		return cc, nil
	}
	return ChainConfig{}, fmt.Errorf("chain %s not found", chain)
}
