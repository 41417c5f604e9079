// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrExtHdrDReg   nlattr.NetlinkType = 1
	attrExtHdrType   nlattr.NetlinkType = 2
	attrExtHdrOffset nlattr.NetlinkType = 3
	attrExtHdrLen    nlattr.NetlinkType = 4
	attrExtHdrFlags  nlattr.NetlinkType = 5
	attrExtHdrOp     nlattr.NetlinkType = 6
	attrExtHdrSReg   nlattr.NetlinkType = 7
)

type ExtHdrOp uint32

const (
	ExtHdrOpIPv6   ExtHdrOp = 0
	ExtHdrOpTCPOpt ExtHdrOp = 1
)

func (this ExtHdrOp) String() string {
	if this == ExtHdrOpTCPOpt {
		return "tcpopt"
	}
	return "ipv6"
}

// TCP option kinds
const (
	TCPOptMaxSeg uint8 = 2
)

// NFT_EXTHDR_F_PRESENT
const ExtHdrFlagPresent uint32 = 1

func init() {
	RegisterDecoder("exthdr", nlattr.Policy{
		attrExtHdrDReg:   nlattr.DecodeU32,
		attrExtHdrType:   nlattr.DecodeU8,
		attrExtHdrOffset: nlattr.DecodeU32,
		attrExtHdrLen:    nlattr.DecodeU32,
		attrExtHdrFlags:  nlattr.DecodeU32,
		attrExtHdrOp:     nlattr.DecodeU32,
		attrExtHdrSReg:   nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &ExtHdr{}
	})
}

// ExtHdr read or write an IPv6 extension header or a TCP option
type ExtHdr struct {
	Op             ExtHdrOp
	Type           uint8
	Offset         uint32
	Len            uint32
	Flags          uint32
	Register       Register
	SourceRegister bool
}

func (this *ExtHdr) Name() string {
	return "exthdr"
}

func (this *ExtHdr) Encode() (*nlattr.AttributeSet, error) {
	var attrs = nlattr.NewAttributeSet().
		Set(attrExtHdrType, nlattr.U8(this.Type)).
		Set(attrExtHdrOffset, nlattr.U32(this.Offset)).
		Set(attrExtHdrLen, nlattr.U32(this.Len)).
		Set(attrExtHdrOp, nlattr.U32(this.Op))
	if this.SourceRegister {
		attrs.Set(attrExtHdrSReg, nlattr.U32(this.Register))
	} else {
		attrs.Set(attrExtHdrDReg, nlattr.U32(this.Register))
		attrs.Set(attrExtHdrFlags, nlattr.U32(this.Flags))
	}
	return attrs, nil
}

func (this *ExtHdr) Decode(attrs *nlattr.AttributeSet) error {
	op, _ := attrs.GetU32(attrExtHdrOp)
	this.Op = ExtHdrOp(op)
	this.Type, _ = attrs.GetU8(attrExtHdrType)
	this.Offset, _ = attrs.GetU32(attrExtHdrOffset)
	this.Len, _ = attrs.GetU32(attrExtHdrLen)
	this.Flags, _ = attrs.GetU32(attrExtHdrFlags)
	sreg, ok := attrs.GetU32(attrExtHdrSReg)
	if ok {
		this.SourceRegister = true
		this.Register = Register(sreg)
	} else {
		this.SourceRegister = false
		this.Register = getRegister(attrs, attrExtHdrDReg)
	}
	return nil
}

func (this *ExtHdr) String() string {
	if this.SourceRegister {
		return fmt.Sprintf("exthdr write %s type %d %db @ %d with %s", this.Op, this.Type, this.Len, this.Offset, this.Register)
	}
	return fmt.Sprintf("exthdr load %s type %d %db @ %d flags %d => %s", this.Op, this.Type, this.Len, this.Offset, this.Flags, this.Register)
}
