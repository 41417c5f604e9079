// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

// Package compat converts expressions built with github.com/google/nftables/expr,
// so rules written against that library can be sent through our own batches.
package compat

import (
	"errors"
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	gexpr "github.com/google/nftables/expr"
)

var ErrUnsupportedExpr = errors.New("unsupported expression")

// ConvertExpr convert one expression
func ConvertExpr(e gexpr.Any) (expr.Expression, error) {
	switch v := e.(type) {
	case *gexpr.Meta:
		return &expr.Meta{
			Key:            expr.MetaKey(v.Key),
			SourceRegister: v.SourceRegister,
			Register:       expr.Register(v.Register),
		}, nil
	case *gexpr.Cmp:
		return &expr.Cmp{
			Op:       expr.CmpOp(v.Op),
			Register: expr.Register(v.Register),
			Data:     clone(v.Data),
		}, nil
	case *gexpr.Payload:
		if v.OperationType != gexpr.PayloadLoad {
			return nil, fmt.Errorf("%w: payload write", ErrUnsupportedExpr)
		}
		return &expr.Payload{
			DestRegister: expr.Register(v.DestRegister),
			Base:         expr.PayloadBase(v.Base),
			Offset:       v.Offset,
			Len:          v.Len,
		}, nil
	case *gexpr.Bitwise:
		return &expr.Bitwise{
			SourceRegister: expr.Register(v.SourceRegister),
			DestRegister:   expr.Register(v.DestRegister),
			Len:            v.Len,
			Mask:           clone(v.Mask),
			Xor:            clone(v.Xor),
		}, nil
	case *gexpr.Byteorder:
		return &expr.Byteorder{
			SourceRegister: expr.Register(v.SourceRegister),
			DestRegister:   expr.Register(v.DestRegister),
			Op:             expr.ByteorderOp(v.Op),
			Len:            v.Len,
			Size:           v.Size,
		}, nil
	case *gexpr.Immediate:
		return &expr.Immediate{
			Register: expr.Register(v.Register),
			Data:     clone(v.Data),
		}, nil
	case *gexpr.Verdict:
		var verdict = expr.NewVerdict(expr.VerdictKind(int32(v.Kind)))
		verdict.Chain = v.Chain
		return verdict, nil
	case *gexpr.Reject:
		return expr.NewRejectWith(expr.RejectType(v.Type), v.Code), nil
	case *gexpr.Counter:
		return &expr.Counter{
			Bytes:   v.Bytes,
			Packets: v.Packets,
		}, nil
	case *gexpr.Ct:
		return &expr.Conntrack{
			Key:            expr.CtKey(v.Key),
			Register:       expr.Register(v.Register),
			SourceRegister: v.SourceRegister,
		}, nil
	case *gexpr.NAT:
		return &expr.Nat{
			Type:        natType(v.Type),
			Family:      nlattr.ProtoFamily(v.Family),
			RegAddrMin:  expr.Register(v.RegAddrMin),
			RegAddrMax:  expr.Register(v.RegAddrMax),
			RegProtoMin: expr.Register(v.RegProtoMin),
			RegProtoMax: expr.Register(v.RegProtoMax),
		}, nil
	case *gexpr.Masq:
		if v.ToPorts || v.Random || v.FullyRandom || v.Persistent {
			return nil, fmt.Errorf("%w: masq with options", ErrUnsupportedExpr)
		}
		return &expr.Masquerade{}, nil
	case *gexpr.Exthdr:
		var exthdr = &expr.ExtHdr{
			Op:       expr.ExtHdrOp(v.Op),
			Type:     v.Type,
			Offset:   v.Offset,
			Len:      v.Len,
			Flags:    v.Flags,
			Register: expr.Register(v.DestRegister),
		}
		if v.SourceRegister > 0 {
			exthdr.Register = expr.Register(v.SourceRegister)
			exthdr.SourceRegister = true
		}
		return exthdr, nil
	case *gexpr.Rt:
		return &expr.Rt{
			Register: expr.Register(v.Register),
			Key:      expr.RtKey(v.Key),
		}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedExpr, e)
}

// ConvertExprs convert expressions keeping their order
func ConvertExprs(exprs []gexpr.Any) ([]expr.Expression, error) {
	var result = make([]expr.Expression, 0, len(exprs))
	for index, e := range exprs {
		converted, err := ConvertExpr(e)
		if err != nil {
			return nil, fmt.Errorf("expression %d: %w", index, err)
		}
		result = append(result, converted)
	}
	return result, nil
}

// NewRule rule in chain with converted expressions
func NewRule(chain *nftables.Chain, exprs []gexpr.Any) (*nftables.Rule, error) {
	converted, err := ConvertExprs(exprs)
	if err != nil {
		return nil, err
	}
	var rule = nftables.NewRule(chain)
	for _, e := range converted {
		rule.AddExpr(e)
	}
	return rule, nil
}

func natType(t gexpr.NATType) expr.NatType {
	if t == gexpr.NATTypeDestNAT {
		return expr.NatTypeDestNat
	}
	return expr.NatTypeSourceNat
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
