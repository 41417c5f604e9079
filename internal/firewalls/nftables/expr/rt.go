// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrRtDReg nlattr.NetlinkType = 1
	attrRtKey  nlattr.NetlinkType = 2
)

type RtKey uint32

const (
	RtKeyClassID  RtKey = 0
	RtKeyNextHop4 RtKey = 1
	RtKeyNextHop6 RtKey = 2
	RtKeyTCPMSS   RtKey = 3
)

func (this RtKey) String() string {
	switch this {
	case RtKeyClassID:
		return "classid"
	case RtKeyNextHop4:
		return "nexthop4"
	case RtKeyNextHop6:
		return "nexthop6"
	case RtKeyTCPMSS:
		return "tcpmss"
	}
	return "key " + strconv.Itoa(int(this))
}

func init() {
	RegisterDecoder("rt", nlattr.Policy{
		attrRtDReg: nlattr.DecodeU32,
		attrRtKey:  nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Rt{}
	})
}

// Rt load routing information of the packet into a register
type Rt struct {
	Register Register
	Key      RtKey
}

func (this *Rt) Name() string {
	return "rt"
}

func (this *Rt) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrRtDReg, nlattr.U32(this.Register)).
		Set(attrRtKey, nlattr.U32(this.Key)), nil
}

func (this *Rt) Decode(attrs *nlattr.AttributeSet) error {
	this.Register = getRegister(attrs, attrRtDReg)
	key, _ := attrs.GetU32(attrRtKey)
	this.Key = RtKey(key)
	return nil
}

func (this *Rt) String() string {
	return "rt load " + this.Key.String() + " => " + this.Register.String()
}
