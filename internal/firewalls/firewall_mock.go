// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls

import (
	"sync"
)

// MockFirewall 模拟防火墙，只记录调用，不修改系统规则
type MockFirewall struct {
	locker  sync.Mutex
	ports   map[string]bool // protocol:port
	allowed map[string]bool
	denied  map[string]int // ip => timeout seconds
}

func NewMockFirewall() *MockFirewall {
	return &MockFirewall{
		ports:   map[string]bool{},
		allowed: map[string]bool{},
		denied:  map[string]int{},
	}
}

// Name 名称
func (this *MockFirewall) Name() string {
	return "mock"
}

// IsReady 是否已准备被调用
func (this *MockFirewall) IsReady() bool {
	return true
}

// IsMock 是否为模拟
func (this *MockFirewall) IsMock() bool {
	return true
}

// AllowPort 允许端口
func (this *MockFirewall) AllowPort(port int, protocol string) error {
	_, err := parsePort(port, protocol)
	if err != nil {
		return err
	}
	this.locker.Lock()
	this.ports[portKey(port, protocol)] = true
	this.locker.Unlock()
	return nil
}

// RemovePort 删除端口
func (this *MockFirewall) RemovePort(port int, protocol string) error {
	this.locker.Lock()
	delete(this.ports, portKey(port, protocol))
	this.locker.Unlock()
	return nil
}

func (this *MockFirewall) AllowSourceIP(ip string) error {
	_, err := parseIP(ip)
	if err != nil {
		return err
	}
	this.locker.Lock()
	delete(this.denied, ip)
	this.allowed[ip] = true
	this.locker.Unlock()
	return nil
}

// RejectSourceIP 拒绝某个源IP连接
func (this *MockFirewall) RejectSourceIP(ip string, timeoutSeconds int) error {
	return this.DropSourceIP(ip, timeoutSeconds, false)
}

// DropSourceIP 丢弃某个源IP数据
func (this *MockFirewall) DropSourceIP(ip string, timeoutSeconds int, async bool) error {
	_, err := parseIP(ip)
	if err != nil {
		return err
	}
	this.locker.Lock()
	delete(this.allowed, ip)
	this.denied[ip] = timeoutSeconds
	this.locker.Unlock()
	return nil
}

// RemoveSourceIP 删除某个源IP
func (this *MockFirewall) RemoveSourceIP(ip string) error {
	this.locker.Lock()
	delete(this.allowed, ip)
	delete(this.denied, ip)
	this.locker.Unlock()
	return nil
}

// IsDenied 检查IP是否在黑名单中
func (this *MockFirewall) IsDenied(ip string) bool {
	this.locker.Lock()
	defer this.locker.Unlock()
	_, ok := this.denied[ip]
	return ok
}

func (this *MockFirewall) Close() error {
	return nil
}
