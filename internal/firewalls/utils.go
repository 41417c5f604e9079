// Copyright 2023 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package firewalls

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/iwind/TeaGo/types"
)

// DropTemporaryTo 使用本地防火墙临时拦截IP数据包
func DropTemporaryTo(ip string, expiresAt int64) {
	// 如果为0，则表示是长期有效
	if expiresAt <= 0 {
		expiresAt = time.Now().Unix() + 3600
	}

	var timeout = expiresAt - time.Now().Unix()
	if timeout < 1 {
		return
	}
	if timeout > 3600 {
		timeout = 3600
	}

	var fw = Firewall()
	if fw != nil && !fw.IsMock() {
		// timeout <= 3600, int(int64) will not overflow
		_ = fw.DropSourceIP(ip, int(timeout), true)
	}
}

func parseIP(ip string) (net.IP, error) {
	var data = net.ParseIP(ip)
	if data == nil {
		return nil, errors.New("invalid ip '" + ip + "'")
	}
	return data, nil
}

func parsePort(port int, protocol string) (nftables.Protocol, error) {
	if port <= 0 || port > 65535 {
		return 0, errors.New("invalid port '" + types.String(port) + "'")
	}
	proto, ok := nftables.ParseProtocol(protocol)
	if !ok {
		return 0, errors.New("invalid protocol '" + protocol + "'")
	}
	return proto, nil
}

func portKey(port int, protocol string) string {
	return strings.ToLower(protocol) + ":" + types.String(port)
}
