// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package compat_test

import (
	"errors"
	"net"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/compat"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	gexpr "github.com/google/nftables/expr"
	"github.com/iwind/TeaGo/assert"
)

func testChain() *nftables.Chain {
	return nftables.NewChain("input", nftables.NewIPv4Table("test_ipv4"))
}

func TestNewRule_Network(t *testing.T) {
	var a = assert.NewAssertion(t)

	_, network, err := net.ParseCIDR("192.168.1.0/24")
	if err != nil {
		t.Fatal(err)
	}

	rule, err := compat.NewRule(testChain(), []gexpr.Any{
		&gexpr.Meta{Key: gexpr.MetaKeyNFPROTO, Register: 1},
		&gexpr.Cmp{Op: gexpr.CmpOpEq, Register: 1, Data: []byte{2}},
		&gexpr.Payload{DestRegister: 1, Base: gexpr.PayloadBaseNetworkHeader, Offset: 12, Len: 4},
		&gexpr.Bitwise{SourceRegister: 1, DestRegister: 1, Len: 4, Mask: []byte{255, 255, 255, 0}, Xor: []byte{0, 0, 0, 0}},
		&gexpr.Cmp{Op: gexpr.CmpOpEq, Register: 1, Data: []byte{192, 168, 1, 0}},
		&gexpr.Verdict{Kind: gexpr.VerdictDrop},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Log(rule)

	var built = nftables.NewRule(testChain()).SNetwork(network).Drop()
	a.IsNil(built.Err())
	a.IsTrue(rule.DeepEqual(built))
	a.IsTrue(rule.VerDict() == expr.VerdictDrop)
}

func TestConvertExpr_Verdicts(t *testing.T) {
	var a = assert.NewAssertion(t)

	{
		e, err := compat.ConvertExpr(&gexpr.Verdict{Kind: gexpr.VerdictJump, Chain: "office"})
		a.IsNil(err)
		a.IsTrue(e.String() == "jump office")
	}
	{
		e, err := compat.ConvertExpr(&gexpr.Verdict{Kind: gexpr.VerdictAccept})
		a.IsNil(err)
		a.IsTrue(e.String() == "accept")
	}
	{
		e, err := compat.ConvertExpr(&gexpr.Reject{Type: 2, Code: 3})
		a.IsNil(err)
		verdict, ok := e.(*expr.Verdict)
		a.IsTrue(ok)
		a.IsTrue(verdict.Kind == expr.VerdictReject)
		a.IsTrue(verdict.RejectType == expr.RejectTypeICMPXUnreach)
		a.IsTrue(verdict.RejectCode == expr.RejectCodeAdminProhibited)
	}
}

func TestConvertExpr_Statements(t *testing.T) {
	var a = assert.NewAssertion(t)

	{
		e, err := compat.ConvertExpr(&gexpr.Exthdr{
			Op:             gexpr.ExthdrOpTcpopt,
			Type:           2,
			Offset:         2,
			Len:            2,
			SourceRegister: 1,
		})
		a.IsNil(err)
		exthdr, ok := e.(*expr.ExtHdr)
		a.IsTrue(ok)
		a.IsTrue(exthdr.SourceRegister)
		a.IsTrue(exthdr.Register == expr.Reg1)
		a.IsTrue(exthdr.Op == expr.ExtHdrOpTCPOpt)
	}
	{
		e, err := compat.ConvertExpr(&gexpr.NAT{
			Type:       gexpr.NATTypeDestNAT,
			Family:     2,
			RegAddrMin: 1,
		})
		a.IsNil(err)
		nat, ok := e.(*expr.Nat)
		a.IsTrue(ok)
		a.IsTrue(nat.Type == expr.NatTypeDestNat)
		a.IsTrue(nat.RegAddrMin == expr.Reg1)
	}
	{
		e, err := compat.ConvertExpr(&gexpr.Masq{})
		a.IsNil(err)
		_, ok := e.(*expr.Masquerade)
		a.IsTrue(ok)
	}
	{
		_, err := compat.ConvertExpr(&gexpr.Masq{Random: true})
		a.IsTrue(errors.Is(err, compat.ErrUnsupportedExpr))
	}
	{
		e, err := compat.ConvertExpr(&gexpr.Counter{Packets: 3, Bytes: 100})
		a.IsNil(err)
		counter, ok := e.(*expr.Counter)
		a.IsTrue(ok)
		a.IsTrue(counter.Packets == 3 && counter.Bytes == 100)
	}
}

func TestConvertExpr_Unsupported(t *testing.T) {
	var a = assert.NewAssertion(t)

	_, err := compat.ConvertExprs([]gexpr.Any{
		&gexpr.Counter{},
		&gexpr.Lookup{SourceRegister: 1, SetName: "deny_set"},
	})
	a.IsNotNil(err)
	a.IsTrue(errors.Is(err, compat.ErrUnsupportedExpr))
	t.Log(err)

	_, err = compat.ConvertExpr(&gexpr.Payload{OperationType: gexpr.PayloadWrite})
	a.IsTrue(errors.Is(err, compat.ErrUnsupportedExpr))
}

func TestConvertExpr_Order(t *testing.T) {
	var a = assert.NewAssertion(t)

	exprs, err := compat.ConvertExprs([]gexpr.Any{
		&gexpr.Counter{},
		&gexpr.Meta{Key: gexpr.MetaKeyL4PROTO, Register: 1},
		&gexpr.Verdict{Kind: gexpr.VerdictAccept},
	})
	a.IsNil(err)
	a.IsTrue(len(exprs) == 3)
	a.IsTrue(exprs[0].Name() == "counter")
	a.IsTrue(exprs[1].Name() == "meta")
	a.IsTrue(exprs[2].Name() == "immediate")
}
