// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package rulesets_test

import (
	"context"
	"testing"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nftest"
	"github.com/TeaOSLab/EdgeNFT/internal/rulesets"
	"github.com/iwind/TeaGo/assert"
)

func newTestApplier(t *testing.T) (*rulesets.Applier, *nftest.Kernel) {
	var kernel = nftest.NewKernel()
	conn, err := nftables.NewConn(nftables.WithSocket(kernel.NewSocket()), nftables.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	return rulesets.NewApplier(conn), kernel
}

func TestApplier_Apply(t *testing.T) {
	var a = assert.NewAssertion(t)

	applier, kernel := newTestApplier(t)
	var config = testConfig(t)

	result, err := applier.Apply(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(result.Result.Succeeded())
	a.IsTrue(result.Generation == kernel.Generation())
	a.IsTrue(kernel.HasTable(nftables.TableFamilyINet, "edge_filter"))
	a.IsTrue(kernel.HasChain(nftables.TableFamilyINet, "edge_filter", "office"))
	a.IsTrue(kernel.CountRules(nftables.TableFamilyINet, "edge_filter", "input") == 2)
	a.IsTrue(kernel.CountRules(nftables.TableFamilyIPv4, "edge_nat", "") == 1)
	t.Log("cost:", result.CostMs, "ms")

	// applying again replaces the tables instead of appending rules
	_, err = applier.Apply(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(kernel.Batches() == 2)
	a.IsTrue(kernel.CountRules(nftables.TableFamilyINet, "edge_filter", "input") == 2)

	report, err := applier.Verify(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(report.InSync())
}

func TestApplier_Apply_Rollback(t *testing.T) {
	var a = assert.NewAssertion(t)

	applier, kernel := newTestApplier(t)

	var config = testConfig(t)
	config.Tables = config.Tables[:1]
	config.Tables[0].Chains = config.Tables[0].Chains[:1]
	config.Tables[0].Chains[0].Rules = config.Tables[0].Chains[0].Rules[:1]
	_, err := applier.Apply(context.Background(), config)
	a.IsNil(err)

	// second chain with the same name fails in the kernel
	var broken = testConfig(t)
	broken.Tables[0].Chains[1].Name = "input"
	_, err = applier.Apply(context.Background(), broken)
	a.IsNotNil(err)
	t.Log(err)

	// previous ruleset is still in place
	a.IsTrue(kernel.Batches() == 1)
	a.IsTrue(kernel.CountRules(nftables.TableFamilyINet, "edge_filter", "input") == 1)
	a.IsFalse(kernel.HasChain(nftables.TableFamilyINet, "edge_filter", "office"))
}

func TestApplier_Verify(t *testing.T) {
	var a = assert.NewAssertion(t)

	applier, _ := newTestApplier(t)
	var config = testConfig(t)

	report, err := applier.Verify(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsFalse(report.InSync())
	a.IsTrue(len(report.Missing) == 2)
	t.Log(report.Missing)

	_, err = applier.Apply(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	// rules changed in the config only
	config.Tables[0].Chains[0].Rules[0].DPort = 2222
	report, err = applier.Verify(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(len(report.Missing) == 0)
	a.IsTrue(len(report.Changed) == 1)
	t.Log(report.Changed)
}

func TestApplier_Verify_Interrupted(t *testing.T) {
	var a = assert.NewAssertion(t)

	applier, kernel := newTestApplier(t)
	var config = testConfig(t)
	_, err := applier.Apply(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	kernel.InterruptDumps(2)
	report, err := applier.Verify(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(report.InSync())

	kernel.InterruptDumps(100)
	_, err = applier.SetMaxRetries(1).Verify(context.Background(), config)
	a.IsTrue(nftables.IsRetryable(err))
}

func TestApplier_Remove(t *testing.T) {
	var a = assert.NewAssertion(t)

	applier, kernel := newTestApplier(t)
	var config = testConfig(t)
	_, err := applier.Apply(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	a.IsNil(applier.Remove(context.Background(), config))
	a.IsFalse(kernel.HasTable(nftables.TableFamilyINet, "edge_filter"))
	a.IsFalse(kernel.HasTable(nftables.TableFamilyIPv4, "edge_nat"))

	// missing tables are skipped
	a.IsNil(applier.Remove(context.Background(), config))
}
