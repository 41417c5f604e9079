// Copyright 2023 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package firewalls

import (
	"sync"
	"time"
)

// Expiration expiring keys of temporary bans
type Expiration struct {
	m map[string]time.Time // key => expires time, zero time never expires

	locker sync.RWMutex
}

func NewExpiration() *Expiration {
	return &Expiration{
		m: map[string]time.Time{},
	}
}

func (this *Expiration) Add(key string, expires time.Time) {
	this.locker.Lock()
	this.m[key] = expires
	this.locker.Unlock()
}

func (this *Expiration) Remove(key string) {
	this.locker.Lock()
	delete(this.m, key)
	this.locker.Unlock()
}

// Contains check whether the key exists and is not expired
func (this *Expiration) Contains(key string) bool {
	this.locker.RLock()
	expires, ok := this.m[key]
	if ok && !expires.IsZero() && time.Now().After(expires) {
		ok = false
	}
	this.locker.RUnlock()
	return ok
}

func (this *Expiration) Len() int {
	this.locker.RLock()
	defer this.locker.RUnlock()
	return len(this.m)
}

// PopExpired remove keys expired at now and return them
func (this *Expiration) PopExpired(now time.Time) []string {
	this.locker.Lock()
	defer this.locker.Unlock()

	var keys = []string{}
	for key, expires := range this.m {
		if !expires.IsZero() && !now.Before(expires) {
			keys = append(keys, key)
			delete(this.m, key)
		}
	}
	return keys
}
