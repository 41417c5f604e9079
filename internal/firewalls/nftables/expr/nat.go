// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strings"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrNatType        nlattr.NetlinkType = 1
	attrNatFamily      nlattr.NetlinkType = 2
	attrNatRegAddrMin  nlattr.NetlinkType = 3
	attrNatRegAddrMax  nlattr.NetlinkType = 4
	attrNatRegProtoMin nlattr.NetlinkType = 5
	attrNatRegProtoMax nlattr.NetlinkType = 6
	attrNatFlags       nlattr.NetlinkType = 7
)

type NatType uint32

const (
	NatTypeSourceNat NatType = 0
	NatTypeDestNat   NatType = 1
)

func (this NatType) String() string {
	if this == NatTypeDestNat {
		return "dnat"
	}
	return "snat"
}

// NF_NAT_RANGE_* flags, the kernel adds MapIPs and ProtoSpecified for the registers it receives
const (
	NatFlagMapIPs          uint32 = 0x1
	NatFlagProtoSpecified  uint32 = 0x2
	NatFlagProtoRandom     uint32 = 0x4
	NatFlagPersistent      uint32 = 0x8
	NatFlagProtoRandomFull uint32 = 0x10
)

func init() {
	RegisterDecoder("nat", nlattr.Policy{
		attrNatType:        nlattr.DecodeU32,
		attrNatFamily:      nlattr.DecodeProtoFamily,
		attrNatRegAddrMin:  nlattr.DecodeU32,
		attrNatRegAddrMax:  nlattr.DecodeU32,
		attrNatRegProtoMin: nlattr.DecodeU32,
		attrNatRegProtoMax: nlattr.DecodeU32,
		attrNatFlags:       nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Nat{}
	})
}

// Nat rewrite addresses and ports from registers
// Registers left at 0 are not sent.
type Nat struct {
	Type        NatType
	Family      nlattr.ProtoFamily
	RegAddrMin  Register
	RegAddrMax  Register
	RegProtoMin Register
	RegProtoMax Register
	Flags       uint32
}

func (this *Nat) Name() string {
	return "nat"
}

func (this *Nat) Encode() (*nlattr.AttributeSet, error) {
	var attrs = nlattr.NewAttributeSet().
		Set(attrNatType, nlattr.U32(this.Type)).
		Set(attrNatFamily, this.Family)
	if this.RegAddrMin != 0 {
		attrs.Set(attrNatRegAddrMin, nlattr.U32(this.RegAddrMin))
	}
	if this.RegAddrMax != 0 {
		attrs.Set(attrNatRegAddrMax, nlattr.U32(this.RegAddrMax))
	}
	if this.RegProtoMin != 0 {
		attrs.Set(attrNatRegProtoMin, nlattr.U32(this.RegProtoMin))
	}
	if this.RegProtoMax != 0 {
		attrs.Set(attrNatRegProtoMax, nlattr.U32(this.RegProtoMax))
	}
	if this.Flags != 0 {
		attrs.Set(attrNatFlags, nlattr.U32(this.Flags))
	}
	return attrs, nil
}

func (this *Nat) Decode(attrs *nlattr.AttributeSet) error {
	natType, _ := attrs.GetU32(attrNatType)
	this.Type = NatType(natType)
	this.Family, _ = attrs.GetProtoFamily(attrNatFamily)
	this.RegAddrMin = getRegister(attrs, attrNatRegAddrMin)
	this.RegAddrMax = getRegister(attrs, attrNatRegAddrMax)
	this.RegProtoMin = getRegister(attrs, attrNatRegProtoMin)
	this.RegProtoMax = getRegister(attrs, attrNatRegProtoMax)
	this.Flags, _ = attrs.GetU32(attrNatFlags)
	return nil
}

func (this *Nat) String() string {
	var pieces = []string{this.Type.String(), this.Family.String()}
	if this.RegAddrMin != 0 {
		pieces = append(pieces, "addr "+this.RegAddrMin.String())
	}
	if this.RegAddrMax != 0 {
		pieces = append(pieces, "addr-max "+this.RegAddrMax.String())
	}
	if this.RegProtoMin != 0 {
		pieces = append(pieces, "proto "+this.RegProtoMin.String())
	}
	if this.RegProtoMax != 0 {
		pieces = append(pieces, "proto-max "+this.RegProtoMax.String())
	}
	return strings.Join(pieces, " ")
}

func init() {
	RegisterDecoder("masq", nlattr.Policy{}, func(attrs *nlattr.AttributeSet) Expression {
		return &Masquerade{}
	})
}

// Masquerade source NAT to the address of the output interface
type Masquerade struct {
}

func (this *Masquerade) Name() string {
	return "masq"
}

func (this *Masquerade) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet(), nil
}

func (this *Masquerade) Decode(attrs *nlattr.AttributeSet) error {
	return nil
}

func (this *Masquerade) String() string {
	return "masq"
}
