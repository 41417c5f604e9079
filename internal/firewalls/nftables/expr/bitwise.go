// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrBitwiseSReg nlattr.NetlinkType = 1
	attrBitwiseDReg nlattr.NetlinkType = 2
	attrBitwiseLen  nlattr.NetlinkType = 3
	attrBitwiseMask nlattr.NetlinkType = 4
	attrBitwiseXor  nlattr.NetlinkType = 5
)

func init() {
	RegisterDecoder("bitwise", nlattr.Policy{
		attrBitwiseSReg: nlattr.DecodeU32,
		attrBitwiseDReg: nlattr.DecodeU32,
		attrBitwiseLen:  nlattr.DecodeU32,
		attrBitwiseMask: nlattr.NestedPolicy(dataPolicy),
		attrBitwiseXor:  nlattr.NestedPolicy(dataPolicy),
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Bitwise{}
	})
}

// Bitwise dreg = (sreg & mask) ^ xor
type Bitwise struct {
	SourceRegister Register
	DestRegister   Register
	Len            uint32
	Mask           []byte
	Xor            []byte
}

// NewBitwise in place operation on register 1
func NewBitwise(mask []byte, xor []byte) (*Bitwise, error) {
	if len(mask) != len(xor) {
		return nil, ErrInvalidMaskLength
	}
	return &Bitwise{
		SourceRegister: Reg1,
		DestRegister:   Reg1,
		Len:            uint32(len(mask)),
		Mask:           mask,
		Xor:            xor,
	}, nil
}

func (this *Bitwise) Name() string {
	return "bitwise"
}

func (this *Bitwise) Encode() (*nlattr.AttributeSet, error) {
	if len(this.Mask) != len(this.Xor) {
		return nil, ErrInvalidMaskLength
	}
	var l = this.Len
	if l == 0 {
		l = uint32(len(this.Mask))
	}
	return nlattr.NewAttributeSet().
		Set(attrBitwiseSReg, nlattr.U32(this.SourceRegister)).
		Set(attrBitwiseDReg, nlattr.U32(this.DestRegister)).
		Set(attrBitwiseLen, nlattr.U32(l)).
		Set(attrBitwiseMask, valueData(this.Mask)).
		Set(attrBitwiseXor, valueData(this.Xor)), nil
}

func (this *Bitwise) Decode(attrs *nlattr.AttributeSet) error {
	this.SourceRegister = getRegister(attrs, attrBitwiseSReg)
	this.DestRegister = getRegister(attrs, attrBitwiseDReg)
	this.Len, _ = attrs.GetU32(attrBitwiseLen)
	this.Mask = getValueData(attrs, attrBitwiseMask)
	this.Xor = getValueData(attrs, attrBitwiseXor)
	return nil
}

func (this *Bitwise) String() string {
	return "bitwise " + this.DestRegister.String() + " = (" + this.SourceRegister.String() + " & " + hexBytes(this.Mask) + ") ^ " + hexBytes(this.Xor) + " len " + strconv.Itoa(int(this.Len))
}
