// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// Attribute value of one netlink attribute
// The set of implementations is closed: U8, U16, U32, U64, String, Bytes, ProtoFamily, *AttributeSet and *List.
type Attribute interface {
	// PayloadLen unpadded payload length
	PayloadLen() int

	appendPayload(b []byte) []byte
}

type U8 uint8

func (this U8) PayloadLen() int { return 1 }

func (this U8) appendPayload(b []byte) []byte {
	return append(b, byte(this))
}

type U16 uint16

func (this U16) PayloadLen() int { return 2 }

func (this U16) appendPayload(b []byte) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(this))
}

type U32 uint32

func (this U32) PayloadLen() int { return 4 }

func (this U32) appendPayload(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(this))
}

type U64 uint64

func (this U64) PayloadLen() int { return 8 }

func (this U64) appendPayload(b []byte) []byte {
	return binary.BigEndian.AppendUint64(b, uint64(this))
}

// String NUL terminated on the wire
type String string

func (this String) PayloadLen() int { return len(this) + 1 }

func (this String) appendPayload(b []byte) []byte {
	b = append(b, this...)
	return append(b, 0)
}

type Bytes []byte

func (this Bytes) PayloadLen() int { return len(this) }

func (this Bytes) appendPayload(b []byte) []byte {
	return append(b, this...)
}

// PayloadLen family attributes are carried as 32 bit integers
func (this ProtoFamily) PayloadLen() int { return 4 }

func (this ProtoFamily) appendPayload(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(this))
}

// List ordered nested sets sharing one element type, such as NFTA_LIST_ELEM
type List struct {
	ElemType NetlinkType
	Items    []*AttributeSet
}

func NewList(elemType NetlinkType) *List {
	return &List{
		ElemType: elemType,
	}
}

func (this *List) Add(item *AttributeSet) *List {
	this.Items = append(this.Items, item)
	return this
}

func (this *List) Len() int {
	if this == nil {
		return 0
	}
	return len(this.Items)
}

func (this *List) PayloadLen() int {
	var l = 0
	for _, item := range this.Items {
		l += Align(HeaderLen + item.PayloadLen())
	}
	return l
}

func (this *List) appendPayload(b []byte) []byte {
	for _, item := range this.Items {
		b = appendAttribute(b, this.ElemType, item)
	}
	return b
}

func (this *List) Equal(other *List) bool {
	if this == nil || other == nil {
		return this == other
	}
	if this.ElemType != other.ElemType || len(this.Items) != len(other.Items) {
		return false
	}
	for index, item := range this.Items {
		if !item.Equal(other.Items[index]) {
			return false
		}
	}
	return true
}

// Equal compare two attribute values
func Equal(a Attribute, b Attribute) bool {
	switch v := a.(type) {
	case Bytes:
		w, ok := b.(Bytes)
		return ok && bytes.Equal(v, w)
	case *AttributeSet:
		w, ok := b.(*AttributeSet)
		return ok && v.Equal(w)
	case *List:
		w, ok := b.(*List)
		return ok && v.Equal(w)
	}
	return a == b
}

func isNested(a Attribute) bool {
	switch a.(type) {
	case *AttributeSet, *List:
		return true
	}
	return false
}

// appendAttribute write header, payload and padding
func appendAttribute(b []byte, t NetlinkType, a Attribute) []byte {
	var l = HeaderLen + a.PayloadLen()
	var typ = t & TypeMask
	if isNested(a) {
		typ |= FlagNested
	}
	b = binary.NativeEndian.AppendUint16(b, uint16(l))
	b = binary.NativeEndian.AppendUint16(b, uint16(typ))
	b = a.appendPayload(b)
	for i := l; i < Align(l); i++ {
		b = append(b, 0)
	}
	return b
}

func describe(a Attribute) string {
	switch v := a.(type) {
	case U8:
		return strconv.FormatUint(uint64(v), 10)
	case U16:
		return strconv.FormatUint(uint64(v), 10)
	case U32:
		return strconv.FormatUint(uint64(v), 10)
	case U64:
		return strconv.FormatUint(uint64(v), 10)
	case String:
		return strconv.Quote(string(v))
	case Bytes:
		return "0x" + hex.EncodeToString(v)
	case ProtoFamily:
		return v.String()
	case *AttributeSet:
		return v.String()
	case *List:
		var s = "["
		for index, item := range v.Items {
			if index > 0 {
				s += " "
			}
			s += item.String()
		}
		return s + "]"
	}
	return "?"
}
