// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrCmpSReg nlattr.NetlinkType = 1
	attrCmpOp   nlattr.NetlinkType = 2
	attrCmpData nlattr.NetlinkType = 3
)

type CmpOp uint32

const (
	CmpOpEq CmpOp = iota
	CmpOpNeq
	CmpOpLt
	CmpOpLte
	CmpOpGt
	CmpOpGte
)

func (this CmpOp) String() string {
	switch this {
	case CmpOpEq:
		return "eq"
	case CmpOpNeq:
		return "neq"
	case CmpOpLt:
		return "lt"
	case CmpOpLte:
		return "lte"
	case CmpOpGt:
		return "gt"
	case CmpOpGte:
		return "gte"
	}
	return "op?"
}

func init() {
	RegisterDecoder("cmp", nlattr.Policy{
		attrCmpSReg: nlattr.DecodeU32,
		attrCmpOp:   nlattr.DecodeU32,
		attrCmpData: nlattr.NestedPolicy(dataPolicy),
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Cmp{}
	})
}

// Cmp compare a register with literal data
type Cmp struct {
	Op       CmpOp
	Register Register
	Data     []byte
}

func NewCmp(op CmpOp, register Register, data []byte) *Cmp {
	return &Cmp{
		Op:       op,
		Register: register,
		Data:     data,
	}
}

func (this *Cmp) Name() string {
	return "cmp"
}

func (this *Cmp) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrCmpSReg, nlattr.U32(this.Register)).
		Set(attrCmpOp, nlattr.U32(this.Op)).
		Set(attrCmpData, valueData(this.Data)), nil
}

func (this *Cmp) Decode(attrs *nlattr.AttributeSet) error {
	this.Register = getRegister(attrs, attrCmpSReg)
	op, _ := attrs.GetU32(attrCmpOp)
	this.Op = CmpOp(op)
	this.Data = getValueData(attrs, attrCmpData)
	return nil
}

func (this *Cmp) String() string {
	return "cmp " + this.Op.String() + " " + this.Register.String() + " " + hexBytes(this.Data)
}
