// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package configs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/iwind/TeaGo/Tea"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const RulesetFileName = "ruleset.yaml"

type Format = string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOfFile format by file extension, yaml if unknown
func FormatOfFile(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	}
	return FormatYAML
}

// DefaultRulesetFile ruleset file under the config directory
func DefaultRulesetFile() string {
	return Tea.ConfigFile(RulesetFileName)
}

// RulesetConfig tables wanted in the kernel
// Every table listed here is owned by edge-nft and replaced as a whole when applied.
type RulesetConfig struct {
	Tables []*TableConfig `yaml:"tables" toml:"tables" json:"tables" validate:"required,min=1,dive,required"`

	path string
}

type TableConfig struct {
	Name   string         `yaml:"name" toml:"name" json:"name" validate:"required,max=255"`
	Family string         `yaml:"family" toml:"family" json:"family" validate:"required,family"`
	Chains []*ChainConfig `yaml:"chains" toml:"chains" json:"chains" validate:"dive,required"`
}

type ChainConfig struct {
	Name     string        `yaml:"name" toml:"name" json:"name" validate:"required,max=255"`
	Hook     string        `yaml:"hook" toml:"hook" json:"hook" validate:"omitempty,hook"`
	Priority int32         `yaml:"priority" toml:"priority" json:"priority"`
	Type     string        `yaml:"type" toml:"type" json:"type" validate:"omitempty,oneof=filter nat route"`
	Policy   string        `yaml:"policy" toml:"policy" json:"policy" validate:"omitempty,oneof=accept drop"`
	Rules    []*RuleConfig `yaml:"rules" toml:"rules" json:"rules" validate:"dive,required"`
}

// IsBaseChain chain with a hook
func (this *ChainConfig) IsBaseChain() bool {
	return len(this.Hook) > 0
}

// RuleConfig matches are joined with "and", the action comes last
type RuleConfig struct {
	Comment string `yaml:"comment" toml:"comment" json:"comment"`

	Protocol    string `yaml:"protocol" toml:"protocol" json:"protocol" validate:"omitempty,oneof=tcp udp icmp icmpv6 igmp"`
	SPort       uint16 `yaml:"sport" toml:"sport" json:"sport"`
	DPort       uint16 `yaml:"dport" toml:"dport" json:"dport"`
	SAddr       string `yaml:"saddr" toml:"saddr" json:"saddr" validate:"omitempty,ip_network"`
	DAddr       string `yaml:"daddr" toml:"daddr" json:"daddr" validate:"omitempty,ip_network"`
	Iif         string `yaml:"iif" toml:"iif" json:"iif" validate:"omitempty,max=15"`
	Oif         string `yaml:"oif" toml:"oif" json:"oif" validate:"omitempty,max=15"`
	Established bool   `yaml:"established" toml:"established" json:"established"`
	Syn         bool   `yaml:"syn" toml:"syn" json:"syn"`

	Counter    bool   `yaml:"counter" toml:"counter" json:"counter"`
	SetMSS     uint16 `yaml:"setMSS" toml:"set_mss" json:"setMSS"`
	ClampMSS   bool   `yaml:"clampMSS" toml:"clamp_mss" json:"clampMSS"`
	DNat       string `yaml:"dnat" toml:"dnat" json:"dnat" validate:"omitempty,ip"`
	DNatPort   uint16 `yaml:"dnatPort" toml:"dnat_port" json:"dnatPort"`
	Masquerade bool   `yaml:"masquerade" toml:"masquerade" json:"masquerade"`

	Action string `yaml:"action" toml:"action" json:"action" validate:"omitempty,oneof=accept drop reject jump goto"`
	Target string `yaml:"target" toml:"target" json:"target" validate:"required_if=Action jump,required_if=Action goto,max=255"`
}

// LoadRulesetConfig read and validate a ruleset file, yaml or toml by extension
func LoadRulesetConfig(path string) (*RulesetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := ParseRulesetConfig(data, FormatOfFile(path))
	if err != nil {
		return nil, fmt.Errorf("load '%s' failed: %w", path, err)
	}
	config.path = path
	return config, nil
}

// ParseRulesetConfig decode and validate ruleset data
func ParseRulesetConfig(data []byte, format Format) (*RulesetConfig, error) {
	var config = &RulesetConfig{}
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, config)
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			err = fmt.Errorf("%w (line %d, column %d)", err, row, col)
		}
	default:
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, err
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Path file the config was loaded from
func (this *RulesetConfig) Path() string {
	return this.path
}

// Encode encode config in format
func (this *RulesetConfig) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf = &bytes.Buffer{}
		var encoder = toml.NewEncoder(buf)
		encoder.SetIndentTables(true)
		err := encoder.Encode(this)
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(this)
}

// WriteFile 保存到文件
func (this *RulesetConfig) WriteFile(path string) error {
	data, err := this.Encode(FormatOfFile(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0666)
}

// FindTable table by name and family
func (this *RulesetConfig) FindTable(name string, family string) *TableConfig {
	for _, table := range this.Tables {
		if table.Name == name && table.Family == family {
			return table
		}
	}
	return nil
}

// CountRules count of rules in all tables
func (this *RulesetConfig) CountRules() int {
	var count = 0
	for _, table := range this.Tables {
		for _, chain := range table.Chains {
			count += len(chain.Rules)
		}
	}
	return count
}

// Fingerprint hash of all fields, rules with the same fingerprint are built the same way
func (this *RuleConfig) Fingerprint() uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%+v", *this))
}
