// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package expr

import (
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

const (
	attrPayloadDReg   nlattr.NetlinkType = 1
	attrPayloadBase   nlattr.NetlinkType = 2
	attrPayloadOffset nlattr.NetlinkType = 3
	attrPayloadLen    nlattr.NetlinkType = 4
)

type PayloadBase uint32

const (
	PayloadBaseLinkHeader      PayloadBase = 0
	PayloadBaseNetworkHeader   PayloadBase = 1
	PayloadBaseTransportHeader PayloadBase = 2
)

func (this PayloadBase) String() string {
	switch this {
	case PayloadBaseLinkHeader:
		return "link"
	case PayloadBaseNetworkHeader:
		return "network"
	case PayloadBaseTransportHeader:
		return "transport"
	}
	return "base?"
}

// PayloadField named header field
type PayloadField int

const (
	FieldEtherDAddr PayloadField = iota + 1
	FieldEtherSAddr
	FieldEtherType
	FieldIPv4Protocol
	FieldIPv4SAddr
	FieldIPv4DAddr
	FieldIPv6NextHeader
	FieldIPv6SAddr
	FieldIPv6DAddr
	FieldTCPSPort
	FieldTCPDPort
	FieldTCPFlags
	FieldUDPSPort
	FieldUDPDPort
	FieldUDPLen
)

type payloadFieldInfo struct {
	base   PayloadBase
	offset uint32
	len    uint32
}

var payloadFields = map[PayloadField]payloadFieldInfo{
	FieldEtherDAddr:     {PayloadBaseLinkHeader, 0, 6},
	FieldEtherSAddr:     {PayloadBaseLinkHeader, 6, 6},
	FieldEtherType:      {PayloadBaseLinkHeader, 12, 2},
	FieldIPv4Protocol:   {PayloadBaseNetworkHeader, 9, 1},
	FieldIPv4SAddr:      {PayloadBaseNetworkHeader, 12, 4},
	FieldIPv4DAddr:      {PayloadBaseNetworkHeader, 16, 4},
	FieldIPv6NextHeader: {PayloadBaseNetworkHeader, 6, 1},
	FieldIPv6SAddr:      {PayloadBaseNetworkHeader, 8, 16},
	FieldIPv6DAddr:      {PayloadBaseNetworkHeader, 24, 16},
	FieldTCPSPort:       {PayloadBaseTransportHeader, 0, 2},
	FieldTCPDPort:       {PayloadBaseTransportHeader, 2, 2},
	FieldTCPFlags:       {PayloadBaseTransportHeader, 13, 1},
	FieldUDPSPort:       {PayloadBaseTransportHeader, 0, 2},
	FieldUDPDPort:       {PayloadBaseTransportHeader, 2, 2},
	FieldUDPLen:         {PayloadBaseTransportHeader, 4, 2},
}

func init() {
	RegisterDecoder("payload", nlattr.Policy{
		attrPayloadDReg:   nlattr.DecodeU32,
		attrPayloadBase:   nlattr.DecodeU32,
		attrPayloadOffset: nlattr.DecodeU32,
		attrPayloadLen:    nlattr.DecodeU32,
	}, func(attrs *nlattr.AttributeSet) Expression {
		return &Payload{}
	})
}

// Payload load Len bytes at Offset of a packet header into a register
type Payload struct {
	DestRegister Register
	Base         PayloadBase
	Offset       uint32
	Len          uint32
}

// NewPayloadField load a named header field into register 1
func NewPayloadField(field PayloadField) (*Payload, error) {
	info, ok := payloadFields[field]
	if !ok {
		return nil, fmt.Errorf("unknown payload field '%d'", field)
	}
	return &Payload{
		DestRegister: Reg1,
		Base:         info.base,
		Offset:       info.offset,
		Len:          info.len,
	}, nil
}

// FieldLen byte length of a named header field, 0 if unknown
func FieldLen(field PayloadField) int {
	return int(payloadFields[field].len)
}

func (this *Payload) Name() string {
	return "payload"
}

func (this *Payload) Encode() (*nlattr.AttributeSet, error) {
	return nlattr.NewAttributeSet().
		Set(attrPayloadDReg, nlattr.U32(this.DestRegister)).
		Set(attrPayloadBase, nlattr.U32(this.Base)).
		Set(attrPayloadOffset, nlattr.U32(this.Offset)).
		Set(attrPayloadLen, nlattr.U32(this.Len)), nil
}

func (this *Payload) Decode(attrs *nlattr.AttributeSet) error {
	this.DestRegister = getRegister(attrs, attrPayloadDReg)
	base, _ := attrs.GetU32(attrPayloadBase)
	this.Base = PayloadBase(base)
	this.Offset, _ = attrs.GetU32(attrPayloadOffset)
	this.Len, _ = attrs.GetU32(attrPayloadLen)
	return nil
}

func (this *Payload) String() string {
	return fmt.Sprintf("payload load %db @ %s header + %d => %s", this.Len, this.Base, this.Offset, this.DestRegister)
}
