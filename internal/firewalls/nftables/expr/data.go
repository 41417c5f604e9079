// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"encoding/hex"
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// Register nftables register, see enum nft_registers
type Register uint32

const (
	RegVerdict Register = 0
	Reg1       Register = 1
	Reg2       Register = 2
	Reg3       Register = 3
	Reg4       Register = 4
)

func (this Register) String() string {
	if this == RegVerdict {
		return "verdict"
	}
	return "reg " + strconv.Itoa(int(this))
}

const (
	AttrDataValue   nlattr.NetlinkType = 1 // NFTA_DATA_VALUE
	AttrDataVerdict nlattr.NetlinkType = 2 // NFTA_DATA_VERDICT

	AttrVerdictCode  nlattr.NetlinkType = 1 // NFTA_VERDICT_CODE
	AttrVerdictChain nlattr.NetlinkType = 2 // NFTA_VERDICT_CHAIN
)

var verdictPolicy = nlattr.Policy{
	AttrVerdictCode:  nlattr.DecodeU32,
	AttrVerdictChain: nlattr.DecodeString,
}

// dataPolicy policy of struct nft_data attributes
var dataPolicy = nlattr.Policy{
	AttrDataValue:   nlattr.DecodeBytes,
	AttrDataVerdict: nlattr.NestedPolicy(verdictPolicy),
}

func valueData(b []byte) *nlattr.AttributeSet {
	return nlattr.NewAttributeSet().Set(AttrDataValue, nlattr.Bytes(b))
}

func getValueData(attrs *nlattr.AttributeSet, t nlattr.NetlinkType) []byte {
	data, ok := attrs.GetSet(t)
	if !ok {
		return nil
	}
	b, _ := data.GetBytes(AttrDataValue)
	return b
}

func getRegister(attrs *nlattr.AttributeSet, t nlattr.NetlinkType) Register {
	v, _ := attrs.GetU32(t)
	return Register(v)
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
