// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlmsg

import (
	"encoding/binary"
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

// Header struct nlmsghdr, in host byte order on the wire
type Header struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	PID   uint32
}

func (this Header) Subsystem() uint8 {
	return uint8(this.Type >> 8)
}

func (this Header) Op() uint16 {
	return this.Type & 0xff
}

func (this Header) AppendTo(b []byte) []byte {
	b = binary.NativeEndian.AppendUint32(b, this.Len)
	b = binary.NativeEndian.AppendUint16(b, this.Type)
	b = binary.NativeEndian.AppendUint16(b, this.Flags)
	b = binary.NativeEndian.AppendUint32(b, this.Seq)
	return binary.NativeEndian.AppendUint32(b, this.PID)
}

func (this Header) String() string {
	return fmt.Sprintf("{len:%d type:0x%x flags:0x%x seq:%d pid:%d}", this.Len, this.Type, this.Flags, this.Seq, this.PID)
}

// ParseHeader b must hold at least HeaderLen bytes
func ParseHeader(b []byte) Header {
	return Header{
		Len:   binary.NativeEndian.Uint32(b[0:4]),
		Type:  binary.NativeEndian.Uint16(b[4:6]),
		Flags: binary.NativeEndian.Uint16(b[6:8]),
		Seq:   binary.NativeEndian.Uint32(b[8:12]),
		PID:   binary.NativeEndian.Uint32(b[12:16]),
	}
}

// Nfgenmsg struct nfgenmsg
type Nfgenmsg struct {
	Family     nlattr.ProtoFamily
	Version    uint8
	ResourceID uint16 // big endian on the wire
}

func (this Nfgenmsg) AppendTo(b []byte) []byte {
	b = append(b, byte(this.Family), this.Version)
	return binary.BigEndian.AppendUint16(b, this.ResourceID)
}

// ParseNfgenmsg b must hold at least NfgenmsgLen bytes
func ParseNfgenmsg(b []byte) Nfgenmsg {
	return Nfgenmsg{
		Family:     nlattr.ProtoFamily(b[0]),
		Version:    b[1],
		ResourceID: binary.BigEndian.Uint16(b[2:4]),
	}
}

// Message one nftables request
type Message struct {
	Header Header
	Nfgen  Nfgenmsg
	Attrs  *nlattr.AttributeSet
}

func (this *Message) Len() int {
	return HeaderLen + NfgenmsgLen + this.Attrs.PayloadLen()
}

// AppendTo encode the message, the length field is computed
func (this *Message) AppendTo(b []byte) ([]byte, error) {
	err := this.Attrs.Validate()
	if err != nil {
		return b, err
	}
	var header = this.Header
	header.Len = uint32(this.Len())
	b = header.AppendTo(b)
	b = this.Nfgen.AppendTo(b)
	if this.Attrs != nil {
		return this.Attrs.AppendTo(b)
	}
	return b, nil
}

func (this *Message) Encode() ([]byte, error) {
	return this.AppendTo(make([]byte, 0, this.Len()))
}

// NewBatchMessage batch begin or end delimiter
func NewBatchMessage(msgType uint16, seq uint32) *Message {
	return &Message{
		Header: Header{
			Type:  msgType,
			Flags: FlagRequest,
			Seq:   seq,
		},
		Nfgen: Nfgenmsg{
			Family:     nlattr.ProtoUnspec,
			Version:    NetlinkV0,
			ResourceID: uint16(SubsysNFTables),
		},
	}
}
