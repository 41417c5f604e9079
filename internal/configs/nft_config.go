// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package configs

import (
	"errors"
	"os"
	"time"

	"github.com/iwind/TeaGo/Tea"
	"gopkg.in/yaml.v3"
)

const NFTConfigFileName = "nft.yaml"

// NFTConfig options of edge-nft itself
type NFTConfig struct {
	Ruleset        string `yaml:"ruleset"`                                  // ruleset file, default is configs/ruleset.yaml
	TimeoutSeconds int    `yaml:"timeoutSeconds" validate:"gte=0,lte=3600"` // timeout of netlink calls
	MaxRetries     int    `yaml:"maxRetries" validate:"gte=0,lte=100"`      // retries on concurrent ruleset changes
	LogFile        string `yaml:"logFile"`                                  // JSON lines log, empty to disable
	Firewall       struct {
		Table  string `yaml:"table" validate:"omitempty,max=255"` // table holding allow and deny rules of the firewall
		Family string `yaml:"family" validate:"omitempty,family"` // inet, ip or ip6
	} `yaml:"firewall"`
}

func DefaultNFTConfig() *NFTConfig {
	var config = &NFTConfig{
		TimeoutSeconds: 10,
		MaxRetries:     5,
	}
	config.Firewall.Family = "inet"
	return config
}

// LoadNFTConfig read configs/nft.yaml, defaults are used if the file does not exist
func LoadNFTConfig() (*NFTConfig, error) {
	return LoadNFTConfigFile(Tea.ConfigFile(NFTConfigFileName))
}

func LoadNFTConfigFile(path string) (*NFTConfig, error) {
	var config = DefaultNFTConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}
	err = validate.Struct(config)
	if err != nil {
		return nil, convertValidatorErrors(err)
	}
	return config, nil
}

// RulesetFile path of the ruleset
func (this *NFTConfig) RulesetFile() string {
	if len(this.Ruleset) > 0 {
		return this.Ruleset
	}
	return DefaultRulesetFile()
}

func (this *NFTConfig) Timeout() time.Duration {
	if this.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(this.TimeoutSeconds) * time.Second
}

// 保存到文件
func (this *NFTConfig) WriteFile(path string) error {
	data, err := yaml.Marshal(this)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0666)
}
