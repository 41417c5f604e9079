// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nodes_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nftest"
	"github.com/TeaOSLab/EdgeNFT/internal/nodes"
	"github.com/iwind/TeaGo/assert"
)

const testRuleset = `
tables:
  - name: edge_filter
    family: inet
    chains:
      - name: input
        hook: input
        policy: accept
        rules:
          - protocol: tcp
            dport: 22
            action: accept
`

const testRuleset2 = `
tables:
  - name: edge_filter
    family: inet
    chains:
      - name: input
        hook: input
        policy: accept
        rules:
          - protocol: tcp
            dport: 22
            action: accept
          - protocol: tcp
            dport: 443
            action: accept
`

func newTestNode(t *testing.T) (*nodes.Node, *nftest.Kernel, string) {
	var kernel = nftest.NewKernel()
	conn, err := nftables.NewConn(nftables.WithSocket(kernel.NewSocket()), nftables.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}

	var rulesetFile = filepath.Join(t.TempDir(), "ruleset.yaml")
	err = os.WriteFile(rulesetFile, []byte(testRuleset), 0666)
	if err != nil {
		t.Fatal(err)
	}

	var config = configs.DefaultNFTConfig()
	config.Ruleset = rulesetFile
	return nodes.NewNode(conn, config), kernel, rulesetFile
}

func waitFor(timeout time.Duration, f func() bool) bool {
	var deadline = time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return f()
}

func TestNode_Reload(t *testing.T) {
	var a = assert.NewAssertion(t)

	node, kernel, rulesetFile := newTestNode(t)
	a.IsTrue(node.RulesetFile() == rulesetFile)

	err := node.Reload(context.Background())
	a.IsNil(err)
	a.IsTrue(node.CountApplied() == 1)
	a.IsTrue(kernel.CountRules(nftables.TableFamilyINet, "edge_filter", "input") == 1)

	// broken file keeps the previous ruleset
	err = os.WriteFile(rulesetFile, []byte("tables: [{name: edge_filter, family: unknown}]"), 0666)
	if err != nil {
		t.Fatal(err)
	}
	err = node.Reload(context.Background())
	a.IsNotNil(err)
	t.Log(err)
	a.IsNotNil(node.LastErr())
	a.IsTrue(node.CountApplied() == 1)
	a.IsTrue(kernel.Batches() == 1)
}

func TestNode_Reload_MissingFile(t *testing.T) {
	var a = assert.NewAssertion(t)

	node, kernel, rulesetFile := newTestNode(t)
	_ = os.Remove(rulesetFile)

	err := node.Reload(context.Background())
	a.IsNotNil(err)
	a.IsTrue(kernel.Batches() == 0)
}

func TestNode_Start(t *testing.T) {
	var a = assert.NewAssertion(t)

	node, kernel, rulesetFile := newTestNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var errChan = make(chan error, 1)
	go func() {
		errChan <- node.Start(ctx)
	}()

	a.IsTrue(waitFor(2*time.Second, func() bool {
		return node.CountApplied() == 1
	}))

	// give the watcher time to be registered
	time.Sleep(200 * time.Millisecond)

	err := os.WriteFile(rulesetFile, []byte(testRuleset2), 0666)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(waitFor(5*time.Second, func() bool {
		return kernel.CountRules(nftables.TableFamilyINet, "edge_filter", "input") == 2
	}))

	cancel()
	select {
	case err = <-errChan:
		a.IsNil(err)
	case <-time.After(2 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNode_NotifyReload(t *testing.T) {
	var a = assert.NewAssertion(t)

	node, kernel, _ := newTestNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = node.Start(ctx)
	}()

	a.IsTrue(waitFor(2*time.Second, func() bool {
		return node.CountApplied() == 1
	}))

	node.NotifyReload()
	node.NotifyReload()
	a.IsTrue(waitFor(2*time.Second, func() bool {
		return node.CountApplied() >= 2
	}))
	a.IsTrue(kernel.Batches() >= 2)
}
