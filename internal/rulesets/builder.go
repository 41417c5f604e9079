// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package rulesets

import (
	"bytes"
	"errors"
	"fmt"
	"net"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/utils"
)

// userDataPrefix marks rules created from a ruleset
var userDataPrefix = []byte("edge-nft:")

// RuleUserData user data stored with a rule, it identifies the rule config the rule was built from
func RuleUserData(rule *configs.RuleConfig) []byte {
	return append(append([]byte{}, userDataPrefix...), fmt.Sprintf("%016x", rule.Fingerprint())...)
}

// IsManagedRule check whether the rule was created from a ruleset
func IsManagedRule(rule *nftables.Rule) bool {
	return bytes.HasPrefix(rule.UserData, userDataPrefix)
}

func BuildTable(tableConfig *configs.TableConfig) (*nftables.Table, error) {
	family, ok := nlattr.ParseProtoFamily(tableConfig.Family)
	if !ok || family == nlattr.ProtoUnspec {
		return nil, fmt.Errorf("%w: '%s'", nftables.ErrInvalidFamily, tableConfig.Family)
	}
	var table = nftables.NewTable(tableConfig.Name, family)
	return table, table.Validate()
}

func BuildChain(table *nftables.Table, chainConfig *configs.ChainConfig) (*nftables.Chain, error) {
	var chain = nftables.NewChain(chainConfig.Name, table)
	if chainConfig.IsBaseChain() {
		hook, ok := nftables.ParseChainHook(chainConfig.Hook)
		if !ok {
			return nil, errors.New("invalid hook '" + chainConfig.Hook + "'")
		}
		chain.SetHook(hook, chainConfig.Priority)
		if len(chainConfig.Type) > 0 {
			chain.SetType(nftables.ChainType(chainConfig.Type))
		}
		switch chainConfig.Policy {
		case "accept":
			_ = chain.SetPolicy(nftables.ChainPolicyAccept)
		case "drop":
			_ = chain.SetPolicy(nftables.ChainPolicyDrop)
		}
	}
	return chain, chain.Validate()
}

// BuildRule translate a rule config into expressions, matches first and the verdict last
func BuildRule(chain *nftables.Chain, ruleConfig *configs.RuleConfig) (*nftables.Rule, error) {
	var rule = nftables.NewRule(chain)
	rule.UserData = RuleUserData(ruleConfig)

	if len(ruleConfig.Iif) > 0 {
		rule.Iif(ruleConfig.Iif)
	}
	if len(ruleConfig.Oif) > 0 {
		rule.Oif(ruleConfig.Oif)
	}

	// protocol and ports
	switch ruleConfig.Protocol {
	case "tcp", "udp":
		protocol, _ := nftables.ParseProtocol(ruleConfig.Protocol)
		var hasPort = false
		if ruleConfig.SPort > 0 {
			rule.SPort(ruleConfig.SPort, protocol)
			hasPort = true
		}
		if ruleConfig.DPort > 0 {
			rule.DPort(ruleConfig.DPort, protocol)
			hasPort = true
		}
		if !hasPort {
			rule.Protocol(protocol)
		}
	case "icmp":
		rule.ICMP()
	case "icmpv6":
		rule.ICMPv6()
	case "igmp":
		rule.IGMP()
	case "":
	default:
		return nil, errors.New("invalid protocol '" + ruleConfig.Protocol + "'")
	}

	// addresses
	for _, addr := range []struct {
		value  string
		source bool
	}{
		{ruleConfig.SAddr, true},
		{ruleConfig.DAddr, false},
	} {
		if len(addr.value) == 0 {
			continue
		}
		network, err := utils.ParseIPNetwork(addr.value)
		if err != nil {
			return nil, err
		}
		switch {
		case utils.IsSingleIP(network) && addr.source:
			rule.SAddr(network.IP)
		case utils.IsSingleIP(network):
			rule.DAddr(network.IP)
		case addr.source:
			rule.SNetwork(network)
		default:
			rule.DNetwork(network)
		}
	}

	if ruleConfig.Established {
		rule.Established()
	}
	if ruleConfig.Syn {
		rule.Syn()
	}

	// statements
	if ruleConfig.Counter {
		rule.Counter()
	}
	if ruleConfig.SetMSS > 0 {
		rule.SetMSS(ruleConfig.SetMSS)
	}
	if ruleConfig.ClampMSS {
		rule.ClampMSSToPMTU()
	}
	if len(ruleConfig.DNat) > 0 {
		var ip = net.ParseIP(ruleConfig.DNat)
		if ip == nil {
			return nil, errors.New("invalid dnat address '" + ruleConfig.DNat + "'")
		}
		rule.DNat(ip, ruleConfig.DNatPort)
	}
	if ruleConfig.Masquerade {
		rule.Masquerade()
	}

	switch ruleConfig.Action {
	case "accept":
		rule.Accept()
	case "drop":
		rule.Drop()
	case "reject":
		rule.Reject()
	case "jump":
		rule.Jump(ruleConfig.Target)
	case "goto":
		rule.Goto(ruleConfig.Target)
	}

	return rule, rule.Err()
}

// BuildBatch batch replacing every table of the ruleset
// A table is created if missing, deleted and created again, so the kernel swaps the whole table in one transaction.
func BuildBatch(config *configs.RulesetConfig) (*nftables.Batch, error) {
	var batch = nftables.NewBatch()
	for _, tableConfig := range config.Tables {
		table, err := BuildTable(tableConfig)
		if err != nil {
			return nil, err
		}

		for _, op := range []nftables.Operation{nftables.OpEnsure, nftables.OpDelete, nftables.OpAdd} {
			_, err = batch.Add(table, op)
			if err != nil {
				return nil, err
			}
		}

		var chains = []*nftables.Chain{}
		for _, chainConfig := range tableConfig.Chains {
			chain, err := BuildChain(table, chainConfig)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", table, err)
			}
			_, err = batch.AddChain(chain)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", chain, err)
			}
			chains = append(chains, chain)
		}

		// rules after all chains, jumps need their target chain
		for chainIndex, chainConfig := range tableConfig.Chains {
			var chain = chains[chainIndex]
			for ruleIndex, ruleConfig := range chainConfig.Rules {
				rule, err := BuildRule(chain, ruleConfig)
				if err != nil {
					return nil, fmt.Errorf("%s: rule %d: %w", chain, ruleIndex, err)
				}
				_, err = batch.AddRule(rule)
				if err != nil {
					return nil, fmt.Errorf("%s: rule %d: %w", chain, ruleIndex, err)
				}
			}
		}
	}
	return batch, nil
}
