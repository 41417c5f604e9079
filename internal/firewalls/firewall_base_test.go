// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls

import (
	"testing"

	"github.com/iwind/TeaGo/assert"
	"github.com/iwind/TeaGo/types"
)

func TestBaseFirewall_CheckLatestIP(t *testing.T) {
	var a = assert.NewAssertion(t)

	var firewall = &BaseFirewall{}
	a.IsFalse(firewall.checkLatestIP("1.2.3.4"))
	a.IsTrue(firewall.checkLatestIP("1.2.3.4"))
	a.IsFalse(firewall.checkLatestIP("1.2.3.5"))

	for i := 0; i < 1000; i++ {
		firewall.checkLatestIP("10.0.0." + types.String(i))
	}
	a.IsTrue(len(firewall.latestIPs) <= maxLatestIPs)
}
