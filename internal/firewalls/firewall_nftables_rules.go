// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package firewalls

import (
	"net"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/compat"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	gexpr "github.com/google/nftables/expr"
)

var (
	acceptVerdict gexpr.Any = &gexpr.Verdict{Kind: gexpr.VerdictAccept}
	dropVerdict   gexpr.Any = &gexpr.Verdict{Kind: gexpr.VerdictDrop}
	rejectVerdict gexpr.Any = &gexpr.Reject{
		Type: uint32(expr.RejectTypeICMPXUnreach),
		Code: expr.RejectCodeHostUnreach,
	}
)

// 源IP匹配规则
func newSourceIPRule(chain *nftables.Chain, ip net.IP, verdict gexpr.Any) (*nftables.Rule, error) {
	return compat.NewRule(chain, append(sourceIPExprs(ip), verdict))
}

// sourceIPExprs nfproto check, then the source address of the network header
func sourceIPExprs(ip net.IP) []gexpr.Any {
	var family = nftables.TableFamilyIPv4
	var offset uint32 = 12
	var addr = ip.To4()
	if addr == nil {
		family = nftables.TableFamilyIPv6
		offset = 8
		addr = ip.To16()
	}

	return []gexpr.Any{
		&gexpr.Meta{Key: gexpr.MetaKeyNFPROTO, Register: 1},
		&gexpr.Cmp{
			Op:       gexpr.CmpOpEq,
			Register: 1,
			Data:     []byte{byte(family)},
		},
		&gexpr.Payload{
			DestRegister: 1,
			Base:         gexpr.PayloadBaseNetworkHeader,
			Offset:       offset,
			Len:          uint32(len(addr)),
		},
		&gexpr.Cmp{
			Op:       gexpr.CmpOpEq,
			Register: 1,
			Data:     addr,
		},
	}
}
