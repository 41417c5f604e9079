// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls

import (
	"sync"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/events"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
)

var currentFirewall FirewallInterface
var firewallLocker = &sync.Mutex{}

// 初始化
func init() {
	events.On(events.EventLoaded, func() {
		var firewall = Firewall()
		if firewall.Name() != "mock" {
			remotelogs.Println("FIREWALL", "found local firewall '"+firewall.Name()+"'")
		}
	})
	events.OnClose(func() {
		firewallLocker.Lock()
		var firewall = currentFirewall
		firewallLocker.Unlock()
		if firewall != nil {
			_ = firewall.Close()
		}
	})
}

// Firewall 查找当前系统中最适合的防火墙
func Firewall() FirewallInterface {
	firewall, created := findFirewall()
	if created && !firewall.IsMock() {
		events.Notify(events.EventNFTablesReady)
	}
	return firewall
}

func findFirewall() (firewall FirewallInterface, created bool) {
	firewallLocker.Lock()
	defer firewallLocker.Unlock()

	if currentFirewall != nil {
		return currentFirewall, false
	}

	config, err := configs.LoadNFTConfig()
	if err != nil {
		remotelogs.Warn("FIREWALL", "load config failed: "+err.Error())
		config = configs.DefaultNFTConfig()
	}

	conn, err := nftables.NewConn(nftables.WithTimeout(config.Timeout()))
	if err == nil {
		nftablesFirewall, err := NewNFTablesFirewall(conn, config)
		if err == nil {
			currentFirewall = nftablesFirewall
			remotelogs.Println("FIREWALL", "nftables is ready")
			return currentFirewall, true
		}
		_ = conn.Close()
		remotelogs.Warn("FIREWALL", "init nftables failed: "+err.Error())
	}

	// 至少返回一个
	currentFirewall = NewMockFirewall()
	return currentFirewall, true
}

// SetFirewall replace the current firewall
func SetFirewall(firewall FirewallInterface) {
	firewallLocker.Lock()
	currentFirewall = firewall
	firewallLocker.Unlock()
}
