// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"strconv"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrCounterBytes   nlattr.NetlinkType = 1
	attrCounterPackets nlattr.NetlinkType = 2
)

func init() {
	RegisterDecoder("counter", nlattr.Policy{
		attrCounterBytes:   nlattr.DecodeU64,
		attrCounterPackets: nlattr.DecodeU64,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Counter{}
	})
}

// Counter count bytes and packets which reach it
type Counter struct {
	Bytes   uint64
	Packets uint64
}

func (this *Counter) Name() string {
	return "counter"
}

func (this *Counter) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrCounterBytes, nlattr.U64(this.Bytes)).
		Set(attrCounterPackets, nlattr.U64(this.Packets)), nil
}

func (this *Counter) Decode(attrs *nlattr.AttributeSet) error {
	this.Bytes, _ = attrs.GetU64(attrCounterBytes)
	this.Packets, _ = attrs.GetU64(attrCounterPackets)
	return nil
}

// String counter values are left out, they change on every listing
func (this *Counter) String() string {
	return "counter"
}

// Stat current values
func (this *Counter) Stat() string {
	return "packets " + strconv.FormatUint(this.Packets, 10) + " bytes " + strconv.FormatUint(this.Bytes, 10)
}
