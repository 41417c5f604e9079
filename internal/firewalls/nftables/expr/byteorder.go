// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrByteorderSReg nlattr.NetlinkType = 1
	attrByteorderDReg nlattr.NetlinkType = 2
	attrByteorderOp   nlattr.NetlinkType = 3
	attrByteorderLen  nlattr.NetlinkType = 4
	attrByteorderSize nlattr.NetlinkType = 5
)

type ByteorderOp uint32

const (
	ByteorderNtoH ByteorderOp = 0
	ByteorderHtoN ByteorderOp = 1
)

func (this ByteorderOp) String() string {
	if this == ByteorderHtoN {
		return "hton"
	}
	return "ntoh"
}

func init() {
	RegisterDecoder("byteorder", nlattr.Policy{
		attrByteorderSReg: nlattr.DecodeU32,
		attrByteorderDReg: nlattr.DecodeU32,
		attrByteorderOp:   nlattr.DecodeU32,
		attrByteorderLen:  nlattr.DecodeU32,
		attrByteorderSize: nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Byteorder{}
	})
}

// Byteorder convert Len bytes of a register in elements of Size bytes
type Byteorder struct {
	SourceRegister Register
	DestRegister   Register
	Op             ByteorderOp
	Len            uint32
	Size           uint32
}

func (this *Byteorder) Name() string {
	return "byteorder"
}

func (this *Byteorder) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrByteorderSReg, nlattr.U32(this.SourceRegister)).
		Set(attrByteorderDReg, nlattr.U32(this.DestRegister)).
		Set(attrByteorderOp, nlattr.U32(this.Op)).
		Set(attrByteorderLen, nlattr.U32(this.Len)).
		Set(attrByteorderSize, nlattr.U32(this.Size)), nil
}

func (this *Byteorder) Decode(attrs *nlattr.AttributeSet) error {
	this.SourceRegister = getRegister(attrs, attrByteorderSReg)
	this.DestRegister = getRegister(attrs, attrByteorderDReg)
	op, _ := attrs.GetU32(attrByteorderOp)
	this.Op = ByteorderOp(op)
	this.Len, _ = attrs.GetU32(attrByteorderLen)
	this.Size, _ = attrs.GetU32(attrByteorderSize)
	return nil
}

func (this *Byteorder) String() string {
	return fmt.Sprintf("byteorder %s = %s(%s, %d, %d)", this.DestRegister, this.Op, this.SourceRegister, this.Size, this.Len)
}
