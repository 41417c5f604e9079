// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls_test

import (
	"testing"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls"
	"github.com/iwind/TeaGo/assert"
)

func TestMockFirewall(t *testing.T) {
	var a = assert.NewAssertion(t)

	var firewall = firewalls.NewMockFirewall()
	a.IsTrue(firewall.IsMock())
	a.IsNil(firewall.AllowPort(22, "tcp"))
	a.IsNotNil(firewall.AllowPort(22, "icmp"))

	a.IsNil(firewall.DropSourceIP("1.2.3.4", 60, true))
	a.IsTrue(firewall.IsDenied("1.2.3.4"))
	a.IsNil(firewall.AllowSourceIP("1.2.3.4"))
	a.IsFalse(firewall.IsDenied("1.2.3.4"))
	a.IsNotNil(firewall.DropSourceIP("1.2.3", 60, true))
}

func TestDropTemporaryTo(t *testing.T) {
	var a = assert.NewAssertion(t)

	var mock = firewalls.NewMockFirewall()
	firewalls.SetFirewall(mock)
	defer firewalls.SetFirewall(nil)

	firewalls.DropTemporaryTo("1.2.3.4", time.Now().Unix()+60)

	// the mock firewall is skipped
	a.IsFalse(mock.IsDenied("1.2.3.4"))
	a.IsTrue(firewalls.Firewall() == mock)
}
