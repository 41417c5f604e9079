// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr

import "strconv"

// NetlinkType attribute type tag, the low 14 bits identify the field
type NetlinkType uint16

const (
	FlagNested       NetlinkType = 0x8000 // NLA_F_NESTED
	FlagNetByteOrder NetlinkType = 0x4000 // NLA_F_NET_BYTEORDER
	TypeMask         NetlinkType = 0x3fff // NLA_TYPE_MASK
)

// HeaderLen size of struct nlattr
const HeaderLen = 4

// MaxAttributeLen length of an attribute is a 16 bits field, header included
const MaxAttributeLen = 0xffff

// Align round n up to the netlink alignment (4 bytes)
func Align(n int) int {
	return (n + 3) &^ 3
}

// ProtoFamily netfilter protocol family (NFPROTO_*)
type ProtoFamily uint8

const (
	ProtoUnspec ProtoFamily = 0
	ProtoInet   ProtoFamily = 1
	ProtoIPv4   ProtoFamily = 2
	ProtoARP    ProtoFamily = 3
	ProtoNetdev ProtoFamily = 5
	ProtoBridge ProtoFamily = 7
	ProtoIPv6   ProtoFamily = 10
)

func (this ProtoFamily) IsValid() bool {
	switch this {
	case ProtoUnspec, ProtoInet, ProtoIPv4, ProtoARP, ProtoNetdev, ProtoBridge, ProtoIPv6:
		return true
	}
	return false
}

func (this ProtoFamily) String() string {
	switch this {
	case ProtoUnspec:
		return "unspec"
	case ProtoInet:
		return "inet"
	case ProtoIPv4:
		return "ip"
	case ProtoARP:
		return "arp"
	case ProtoNetdev:
		return "netdev"
	case ProtoBridge:
		return "bridge"
	case ProtoIPv6:
		return "ip6"
	}
	return "family(" + strconv.Itoa(int(this)) + ")"
}

// ParseProtoFamily parse family name used by the nft command line
func ParseProtoFamily(name string) (ProtoFamily, bool) {
	for _, family := range []ProtoFamily{ProtoInet, ProtoIPv4, ProtoARP, ProtoNetdev, ProtoBridge, ProtoIPv6} {
		if family.String() == name {
			return family, true
		}
	}
	switch name {
	case "ipv4":
		return ProtoIPv4, true
	case "ipv6":
		return ProtoIPv6, true
	}
	return ProtoUnspec, false
}
