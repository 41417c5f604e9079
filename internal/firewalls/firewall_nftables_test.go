// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nftest"
	"github.com/iwind/TeaGo/assert"
)

const testTable = "edge_nft"

func newTestFirewall(t *testing.T, kernel *nftest.Kernel) *firewalls.NFTablesFirewall {
	conn, err := nftables.NewConn(nftables.WithSocket(kernel.NewSocket()), nftables.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	firewall, err := firewalls.NewNFTablesFirewall(conn, configs.DefaultNFTConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = firewall.Close()
	})
	return firewall
}

func countRules(kernel *nftest.Kernel) int {
	return kernel.CountRules(nftables.TableFamilyINet, testTable, "input")
}

// listUserData user data of the rules in the firewall chain
func listUserData(t *testing.T, kernel *nftest.Kernel) []string {
	conn, err := nftables.NewConn(nftables.WithSocket(kernel.NewSocket()), nftables.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = conn.Close()
	}()

	var table = nftables.NewTable(testTable, nftables.TableFamilyINet)
	rules, err := conn.ListRules(context.Background(), nftables.NewChain("input", table))
	if err != nil {
		t.Fatal(err)
	}
	var result = []string{}
	for _, rule := range rules {
		result = append(result, strings.TrimPrefix(string(rule.UserData), "edge-fw:"))
	}
	return result
}

func TestNewNFTablesFirewall(t *testing.T) {
	var a = assert.NewAssertion(t)

	var kernel = nftest.NewKernel()
	var firewall = newTestFirewall(t, kernel)
	a.IsTrue(firewall.IsReady())
	a.IsFalse(firewall.IsMock())
	a.IsTrue(firewall.Name() == "nftables")
	a.IsTrue(kernel.HasChain(nftables.TableFamilyINet, testTable, "input"))
	a.IsTrue(countRules(kernel) == 1)

	// existing table, chain and 'lo' rule are reused
	_ = newTestFirewall(t, kernel)
	a.IsTrue(countRules(kernel) == 1)
}

func TestNFTablesFirewall_Port(t *testing.T) {
	var a = assert.NewAssertion(t)

	var kernel = nftest.NewKernel()
	var firewall = newTestFirewall(t, kernel)

	a.IsNil(firewall.AllowPort(80, "tcp"))
	a.IsNil(firewall.AllowPort(80, "tcp"))
	a.IsNil(firewall.AllowPort(53, "udp"))
	a.IsTrue(countRules(kernel) == 3)

	a.IsNil(firewall.RemovePort(80, "tcp"))
	a.IsNil(firewall.RemovePort(80, "tcp"))
	a.IsTrue(countRules(kernel) == 2)

	a.IsNotNil(firewall.AllowPort(0, "tcp"))
	a.IsNotNil(firewall.AllowPort(80, "sctp"))
}

func TestNFTablesFirewall_SourceIP(t *testing.T) {
	var a = assert.NewAssertion(t)

	var kernel = nftest.NewKernel()
	var firewall = newTestFirewall(t, kernel)

	a.IsNil(firewall.DropSourceIP("192.168.1.100", 0, false))
	a.IsNil(firewall.RejectSourceIP("192.168.1.100", 0))
	a.IsNil(firewall.DropSourceIP("2001:db8::1", 0, false))
	a.IsTrue(countRules(kernel) == 3)

	// allowed ips are matched before denied ones
	a.IsNil(firewall.AllowSourceIP("10.0.0.1"))
	var userDataList = listUserData(t, kernel)
	t.Log(userDataList)
	a.IsTrue(len(userDataList) == 4)
	a.IsTrue(userDataList[0] == "lo")
	a.IsTrue(userDataList[1] == "allow:10.0.0.1")

	// allowing a denied ip removes the ban
	a.IsNil(firewall.AllowSourceIP("192.168.1.100"))
	userDataList = listUserData(t, kernel)
	t.Log(userDataList)
	a.IsTrue(len(userDataList) == 4)
	for _, userData := range userDataList {
		a.IsTrue(userData != "deny:192.168.1.100")
	}

	a.IsNil(firewall.RemoveSourceIP("192.168.1.100"))
	a.IsNil(firewall.RemoveSourceIP("10.0.0.1"))
	a.IsNil(firewall.RemoveSourceIP("2001:db8::1"))
	a.IsTrue(countRules(kernel) == 1)

	a.IsNotNil(firewall.DropSourceIP("192.168.1", 0, false))
	a.IsNotNil(firewall.RemoveSourceIP("abc"))
}

func TestNFTablesFirewall_Timeout(t *testing.T) {
	var a = assert.NewAssertion(t)

	var kernel = nftest.NewKernel()
	var firewall = newTestFirewall(t, kernel)

	a.IsNil(firewall.DropSourceIP("192.168.1.101", 1, false))
	a.IsNil(firewall.DropSourceIP("192.168.1.102", 3600, false))
	a.IsTrue(countRules(kernel) == 3)

	time.Sleep(1100 * time.Millisecond)
	_, err := firewall.PurgeExpired()
	a.IsNil(err)
	a.IsTrue(countRules(kernel) == 2)
}

func TestNFTablesFirewall_Async(t *testing.T) {
	var a = assert.NewAssertion(t)

	var kernel = nftest.NewKernel()
	var firewall = newTestFirewall(t, kernel)

	a.IsNil(firewall.DropSourceIP("192.168.1.103", 60, true))
	a.IsNil(firewall.DropSourceIP("192.168.1.103", 60, true))

	for i := 0; i < 100; i++ {
		if countRules(kernel) == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	a.IsTrue(countRules(kernel) == 2)
}
