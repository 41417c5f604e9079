// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrCtDReg      nlattr.NetlinkType = 1
	attrCtKey       nlattr.NetlinkType = 2
	attrCtDirection nlattr.NetlinkType = 3
	attrCtSReg      nlattr.NetlinkType = 4
)

// CtKey see enum nft_ct_keys
type CtKey uint32

const (
	CtKeyState      CtKey = 0
	CtKeyDirection  CtKey = 1
	CtKeyStatus     CtKey = 2
	CtKeyMark       CtKey = 3
	CtKeySecmark    CtKey = 4
	CtKeyExpiration CtKey = 5
	CtKeyHelper     CtKey = 6
	CtKeyL3Protocol CtKey = 7
	CtKeySrc        CtKey = 8
	CtKeyDst        CtKey = 9
	CtKeyProtocol   CtKey = 10
	CtKeyProtoSrc   CtKey = 11
	CtKeyProtoDst   CtKey = 12
	CtKeyLabels     CtKey = 13
)

// conntrack state bits loaded by CtKeyState
const (
	CtStateBitInvalid     uint32 = 1
	CtStateBitEstablished uint32 = 2
	CtStateBitRelated     uint32 = 4
	CtStateBitNew         uint32 = 8
	CtStateBitUntracked   uint32 = 64
)

var ctKeyNames = []string{"state", "direction", "status", "mark", "secmark", "expiration", "helper", "l3protocol", "saddr", "daddr", "protocol", "proto-src", "proto-dst", "label"}

func (this CtKey) String() string {
	if int(this) < len(ctKeyNames) {
		return ctKeyNames[this]
	}
	return "key " + strconv.Itoa(int(this))
}

func init() {
	RegisterDecoder("ct", nlattr.Policy{
		attrCtDReg:      nlattr.DecodeU32,
		attrCtKey:       nlattr.DecodeU32,
		attrCtDirection: nlattr.DecodeU8,
		attrCtSReg:      nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Conntrack{}
	})
}

// Conntrack load connection tracking information into a register
type Conntrack struct {
	Key            CtKey
	Register       Register
	SourceRegister bool
	Direction      *uint8 // original (0) or reply (1), unset for keys without direction
}

func NewConntrackState() *Conntrack {
	return &Conntrack{
		Key:      CtKeyState,
		Register: Reg1,
	}
}

func (this *Conntrack) Name() string {
	return "ct"
}

func (this *Conntrack) Encode() (*nlattr.AttributeSet, error) {
	var attrs = nlattr.NewAttributeSet().Set(attrCtKey, nlattr.U32(this.Key))
	if this.SourceRegister {
		attrs.Set(attrCtSReg, nlattr.U32(this.Register))
	} else {
		attrs.Set(attrCtDReg, nlattr.U32(this.Register))
	}
	if this.Direction != nil {
		attrs.Set(attrCtDirection, nlattr.U8(*this.Direction))
	}
	return attrs, nil
}

func (this *Conntrack) Decode(attrs *nlattr.AttributeSet) error {
	key, _ := attrs.GetU32(attrCtKey)
	this.Key = CtKey(key)
	sreg, ok := attrs.GetU32(attrCtSReg)
	if ok {
		this.SourceRegister = true
		this.Register = Register(sreg)
	} else {
		this.SourceRegister = false
		this.Register = getRegister(attrs, attrCtDReg)
	}
	direction, ok := attrs.GetU8(attrCtDirection)
	if ok {
		this.Direction = &direction
	} else {
		this.Direction = nil
	}
	return nil
}

func (this *Conntrack) String() string {
	var s = "ct "
	if this.SourceRegister {
		s += "set " + this.Key.String() + " with " + this.Register.String()
	} else {
		s += "load " + this.Key.String() + " => " + this.Register.String()
	}
	if this.Direction != nil {
		s += " dir " + strconv.Itoa(int(*this.Direction))
	}
	return s
}
