// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrMetaDReg nlattr.NetlinkType = 1
	attrMetaKey  nlattr.NetlinkType = 2
	attrMetaSReg nlattr.NetlinkType = 3
)

// MetaKey see enum nft_meta_keys
type MetaKey uint32

const (
	MetaKeyLen        MetaKey = 0
	MetaKeyProtocol   MetaKey = 1
	MetaKeyPriority   MetaKey = 2
	MetaKeyMark       MetaKey = 3
	MetaKeyIIF        MetaKey = 4
	MetaKeyOIF        MetaKey = 5
	MetaKeyIIFNAME    MetaKey = 6
	MetaKeyOIFNAME    MetaKey = 7
	MetaKeyIIFTYPE    MetaKey = 8
	MetaKeyOIFTYPE    MetaKey = 9
	MetaKeySKUID      MetaKey = 10
	MetaKeySKGID      MetaKey = 11
	MetaKeyNFTRACE    MetaKey = 12
	MetaKeyRTCLASSID  MetaKey = 13
	MetaKeySECMARK    MetaKey = 14
	MetaKeyNFPROTO    MetaKey = 15
	MetaKeyL4PROTO    MetaKey = 16
	MetaKeyBRIIIFNAME MetaKey = 17
	MetaKeyBRIOIFNAME MetaKey = 18
	MetaKeyPKTTYPE    MetaKey = 19
	MetaKeyCPU        MetaKey = 20
	MetaKeyIIFGROUP   MetaKey = 21
	MetaKeyOIFGROUP   MetaKey = 22
	MetaKeyCGROUP     MetaKey = 23
	MetaKeyPRANDOM    MetaKey = 24
)

var metaKeyNames = map[MetaKey]string{
	MetaKeyLen:        "len",
	MetaKeyProtocol:   "protocol",
	MetaKeyPriority:   "priority",
	MetaKeyMark:       "mark",
	MetaKeyIIF:        "iif",
	MetaKeyOIF:        "oif",
	MetaKeyIIFNAME:    "iifname",
	MetaKeyOIFNAME:    "oifname",
	MetaKeyIIFTYPE:    "iiftype",
	MetaKeyOIFTYPE:    "oiftype",
	MetaKeySKUID:      "skuid",
	MetaKeySKGID:      "skgid",
	MetaKeyNFTRACE:    "nftrace",
	MetaKeyRTCLASSID:  "rtclassid",
	MetaKeySECMARK:    "secmark",
	MetaKeyNFPROTO:    "nfproto",
	MetaKeyL4PROTO:    "l4proto",
	MetaKeyBRIIIFNAME: "ibrname",
	MetaKeyBRIOIFNAME: "obrname",
	MetaKeyPKTTYPE:    "pkttype",
	MetaKeyCPU:        "cpu",
	MetaKeyIIFGROUP:   "iifgroup",
	MetaKeyOIFGROUP:   "oifgroup",
	MetaKeyCGROUP:     "cgroup",
	MetaKeyPRANDOM:    "random",
}

func (this MetaKey) String() string {
	name, ok := metaKeyNames[this]
	if ok {
		return name
	}
	return "key " + strconv.Itoa(int(this))
}

func init() {
	RegisterDecoder("meta", nlattr.Policy{
		attrMetaDReg: nlattr.DecodeU32,
		attrMetaKey:  nlattr.DecodeU32,
		attrMetaSReg: nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Meta{}
	})
}

// Meta load packet metadata into a register, or set it from a register when SourceRegister is true
type Meta struct {
	Key            MetaKey
	SourceRegister bool
	Register       Register
}

func NewMeta(key MetaKey) *Meta {
	return &Meta{
		Key:      key,
		Register: Reg1,
	}
}

func (this *Meta) Name() string {
	return "meta"
}

func (this *Meta) Encode() (*nlattr.AttributeSet, error) {
	var attrs = nlattr.NewAttributeSet().Set(attrMetaKey, nlattr.U32(this.Key))
	if this.SourceRegister {
		attrs.Set(attrMetaSReg, nlattr.U32(this.Register))
	} else {
		attrs.Set(attrMetaDReg, nlattr.U32(this.Register))
	}
	return attrs, nil
}

func (this *Meta) Decode(attrs *nlattr.AttributeSet) error {
	key, _ := attrs.GetU32(attrMetaKey)
	this.Key = MetaKey(key)
	sreg, ok := attrs.GetU32(attrMetaSReg)
	if ok {
		this.SourceRegister = true
		this.Register = Register(sreg)
	} else {
		this.SourceRegister = false
		this.Register = getRegister(attrs, attrMetaDReg)
	}
	return nil
}

func (this *Meta) String() string {
	if this.SourceRegister {
		return "meta set " + this.Key.String() + " with " + this.Register.String()
	}
	return "meta load " + this.Key.String() + " => " + this.Register.String()
}
