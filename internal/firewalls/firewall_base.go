// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package firewalls

import (
	"sync"
	"time"
)

// IPs added again within this duration are skipped
const latestIPDuration = 3 * time.Second

const maxLatestIPs = 128

type BaseFirewall struct {
	locker    sync.Mutex
	latestIPs map[string]time.Time // ip => added time
}

// 检查是否在最近添加过
func (this *BaseFirewall) checkLatestIP(ip string) bool {
	this.locker.Lock()
	defer this.locker.Unlock()

	var now = time.Now()
	if this.latestIPs == nil {
		this.latestIPs = map[string]time.Time{}
	}

	addedAt, ok := this.latestIPs[ip]
	if ok && now.Sub(addedAt) <= latestIPDuration {
		return true
	}

	if len(this.latestIPs) >= maxLatestIPs {
		for oldIP, oldTime := range this.latestIPs {
			if now.Sub(oldTime) > latestIPDuration {
				delete(this.latestIPs, oldIP)
			}
		}

		// still full, forget any one of them
		if len(this.latestIPs) >= maxLatestIPs {
			for oldIP := range this.latestIPs {
				delete(this.latestIPs, oldIP)
				break
			}
		}
	}

	this.latestIPs[ip] = now
	return false
}
