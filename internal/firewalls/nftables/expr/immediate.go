// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrImmediateDReg nlattr.NetlinkType = 1
	attrImmediateData nlattr.NetlinkType = 2
)

func init() {
	// a load into the verdict register is a verdict
	RegisterDecoder("immediate", nlattr.Policy{
		attrImmediateDReg: nlattr.DecodeU32,
		attrImmediateData: nlattr.NestedPolicy(dataPolicy),
	}, func(attrs *nlattr.AttributeSet) Expression {
		if getRegister(attrs, attrImmediateDReg) == RegVerdict {
			return &Verdict{}
		}
		return &Immediate{}
	})
}

// Immediate load literal data into a register
type Immediate struct {
	Register Register
	Data     []byte
}

func NewImmediate(register Register, data []byte) *Immediate {
	return &Immediate{
		Register: register,
		Data:     data,
	}
}

func (this *Immediate) Name() string {
	return "immediate"
}

func (this *Immediate) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrImmediateDReg, nlattr.U32(this.Register)).
		Set(attrImmediateData, valueData(this.Data)), nil
}

func (this *Immediate) Decode(attrs *nlattr.AttributeSet) error {
	this.Register = getRegister(attrs, attrImmediateDReg)
	this.Data = getValueData(attrs, attrImmediateData)
	return nil
}

func (this *Immediate) String() string {
	return "immediate " + hexBytes(this.Data) + " => " + this.Register.String()
}
