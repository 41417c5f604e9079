// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package rulesets_test

import (
	"net"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/rulesets"
	"github.com/iwind/TeaGo/assert"
)

const testRuleset = `
tables:
  - name: edge_filter
    family: inet
    chains:
      - name: input
        hook: input
        priority: 0
        policy: accept
        rules:
          - comment: allow ssh
            protocol: tcp
            dport: 22
            action: accept
          - saddr: 10.0.0.0/8
            counter: true
            action: jump
            target: office
      - name: office
        rules:
          - protocol: icmp
            action: drop
  - name: edge_nat
    family: ip
    chains:
      - name: postrouting
        hook: postrouting
        priority: 100
        type: nat
        rules:
          - oif: eth0
            masquerade: true
`

func testConfig(t *testing.T) *configs.RulesetConfig {
	config, err := configs.ParseRulesetConfig([]byte(testRuleset), configs.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	return config
}

func TestBuildTable(t *testing.T) {
	var a = assert.NewAssertion(t)

	table, err := rulesets.BuildTable(&configs.TableConfig{Name: "edge", Family: "ip6"})
	a.IsNil(err)
	a.IsTrue(table.Family == nftables.TableFamilyIPv6)

	_, err = rulesets.BuildTable(&configs.TableConfig{Name: "edge", Family: "unspec"})
	a.IsNotNil(err)
}

func TestBuildChain(t *testing.T) {
	var a = assert.NewAssertion(t)

	var table = nftables.NewIPv4Table("edge")
	chain, err := rulesets.BuildChain(table, &configs.ChainConfig{
		Name:     "forward",
		Hook:     "forward",
		Priority: -10,
		Policy:   "drop",
	})
	a.IsNil(err)
	a.IsTrue(chain.IsBaseChain())
	policy, ok := chain.Policy()
	a.IsTrue(ok)
	a.IsTrue(policy == nftables.ChainPolicyDrop)
	t.Log(chain)

	chain, err = rulesets.BuildChain(table, &configs.ChainConfig{Name: "office"})
	a.IsNil(err)
	a.IsFalse(chain.IsBaseChain())

	_, err = rulesets.BuildChain(table, &configs.ChainConfig{Name: "bad", Hook: "sideways"})
	a.IsNotNil(err)
}

func TestBuildRule(t *testing.T) {
	var a = assert.NewAssertion(t)

	var chain = nftables.NewChain("input", nftables.NewIPv4Table("edge"))

	{
		rule, err := rulesets.BuildRule(chain, &configs.RuleConfig{Protocol: "tcp", DPort: 22, Action: "accept"})
		a.IsNil(err)
		a.IsTrue(rule.DeepEqual(nftables.NewRule(chain).DPort(22, nftables.ProtocolTCP).Accept()))
		a.IsTrue(rulesets.IsManagedRule(rule))
		t.Log(rule)
	}

	{
		rule, err := rulesets.BuildRule(chain, &configs.RuleConfig{Protocol: "udp", Action: "drop"})
		a.IsNil(err)
		a.IsTrue(rule.DeepEqual(nftables.NewRule(chain).Protocol(nftables.ProtocolUDP).Drop()))
	}

	{
		_, network, _ := net.ParseCIDR("10.0.0.0/8")
		rule, err := rulesets.BuildRule(chain, &configs.RuleConfig{SAddr: "10.0.0.0/8", DAddr: "192.168.1.2", Counter: true, Action: "jump", Target: "office"})
		a.IsNil(err)
		var expected = nftables.NewRule(chain).
			SNetwork(network).
			DAddr(net.ParseIP("192.168.1.2")).
			Counter().
			Jump("office")
		a.IsTrue(rule.DeepEqual(expected))
	}

	{
		rule, err := rulesets.BuildRule(chain, &configs.RuleConfig{Established: true, Action: "accept"})
		a.IsNil(err)
		a.IsTrue(rule.DeepEqual(nftables.NewRule(chain).Established().Accept()))
	}

	{
		_, err := rulesets.BuildRule(chain, &configs.RuleConfig{Protocol: "sctp"})
		a.IsNotNil(err)
	}

	{
		_, err := rulesets.BuildRule(chain, &configs.RuleConfig{Iif: "abcdefghijklmnopq", Action: "drop"})
		a.IsNotNil(err)
	}
}

func TestRuleUserData(t *testing.T) {
	var a = assert.NewAssertion(t)

	var rule1 = &configs.RuleConfig{Protocol: "tcp", DPort: 80, Action: "accept"}
	var rule2 = &configs.RuleConfig{Protocol: "tcp", DPort: 443, Action: "accept"}
	a.IsTrue(string(rulesets.RuleUserData(rule1)) == string(rulesets.RuleUserData(rule1)))
	a.IsTrue(string(rulesets.RuleUserData(rule1)) != string(rulesets.RuleUserData(rule2)))
	a.IsTrue(len(rulesets.RuleUserData(rule1)) == len("edge-nft:")+16)

	var other = nftables.NewRule(nftables.NewChain("input", nftables.NewIPv4Table("edge")))
	a.IsFalse(rulesets.IsManagedRule(other))
}

func TestBuildBatch(t *testing.T) {
	var a = assert.NewAssertion(t)

	batch, err := rulesets.BuildBatch(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	tx, err := batch.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	var kinds = []nftables.ObjectKind{}
	var ops = []nftables.Operation{}
	for _, entry := range tx.Entries {
		kinds = append(kinds, entry.Kind)
		ops = append(ops, entry.Op)
	}

	// edge_filter: table x3, 2 chains, 3 rules; edge_nat: table x3, 1 chain, 1 rule
	a.IsTrue(len(tx.Entries) == 13)
	a.IsTrue(kinds[0] == nftables.ObjectTable && ops[0] == nftables.OpEnsure)
	a.IsTrue(kinds[1] == nftables.ObjectTable && ops[1] == nftables.OpDelete)
	a.IsTrue(kinds[2] == nftables.ObjectTable && ops[2] == nftables.OpAdd)
	a.IsTrue(kinds[3] == nftables.ObjectChain && kinds[4] == nftables.ObjectChain)
	a.IsTrue(kinds[5] == nftables.ObjectRule && kinds[6] == nftables.ObjectRule && kinds[7] == nftables.ObjectRule)
	a.IsTrue(kinds[8] == nftables.ObjectTable && ops[8] == nftables.OpEnsure)
	a.IsTrue(kinds[11] == nftables.ObjectChain)
	a.IsTrue(kinds[12] == nftables.ObjectRule)

	for index, entry := range tx.Entries {
		a.IsTrue(entry.Seq == uint32(index+1))
	}
}

func TestBuildBatch_InvalidRule(t *testing.T) {
	var a = assert.NewAssertion(t)

	var config = testConfig(t)
	config.Tables[0].Chains[0].Rules[0].DNat = "not-an-ip"
	_, err := rulesets.BuildBatch(config)
	a.IsNotNil(err)
	t.Log(err)
}
