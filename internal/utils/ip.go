package utils

import (
	"encoding/binary"
	"math"
	"net"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IP2Long 将IP转换为整型
// 注意IPv6没有顺序
func IP2Long(ip string) uint64 {
	s := net.ParseIP(ip)
	if s == nil {
		return 0
	}

	if strings.Contains(ip, ":") {
		return math.MaxUint32 + xxhash.Sum64String(ip)
	}
	return uint64(binary.BigEndian.Uint32(s.To4()))
}

// IsIPv6 check whether the ip string is an IPv6 address
func IsIPv6(ip string) bool {
	return strings.Contains(ip, ":") && net.ParseIP(ip) != nil
}

// IsLocalIP 判断是否为本地或内网IP
func IsLocalIP(ip string) bool {
	var parsed = net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate()
}

// ParseIPNetwork parse "1.2.3.4" or "1.2.3.0/24", a single address gives a full length mask
func ParseIPNetwork(s string) (*net.IPNet, error) {
	if strings.Contains(s, "/") {
		ip, network, err := net.ParseCIDR(s)
		if err != nil {
			return nil, err
		}
		if ip.To4() != nil {
			network.IP = network.IP.To4()
		}
		return network, nil
	}

	var ip = net.ParseIP(s)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: s}
	}
	var ip4 = ip.To4()
	if ip4 != nil {
		return &net.IPNet{IP: ip4, Mask: net.CIDRMask(32, 32)}, nil
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
}

// IsSingleIP check whether the network holds exactly one address
func IsSingleIP(network *net.IPNet) bool {
	ones, bits := network.Mask.Size()
	return ones == bits && bits > 0
}
