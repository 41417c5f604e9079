// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// RawAttribute one attribute before decoding
type RawAttribute struct {
	Type  NetlinkType // without flag bits
	Flags NetlinkType
	Data  []byte
}

func (this RawAttribute) IsNested() bool {
	return this.Flags&FlagNested != 0
}

// DecodeFunc decode one attribute payload
type DecodeFunc func(data []byte) (Attribute, error)

// Policy attribute type => decoder
type Policy map[NetlinkType]DecodeFunc

// Parse split b into attributes
// Every declared length is checked against the remaining buffer before it is used.
func Parse(b []byte) ([]RawAttribute, error) {
	var result = []RawAttribute{}
	for len(b) > 0 {
		if len(b) < HeaderLen {
			return nil, ErrBufferTooSmall
		}
		var l = int(binary.NativeEndian.Uint16(b[0:2]))
		var t = NetlinkType(binary.NativeEndian.Uint16(b[2:4]))
		if l < HeaderLen || l > len(b) {
			return nil, ErrBufferTooSmall
		}
		result = append(result, RawAttribute{
			Type:  t & TypeMask,
			Flags: t &^ TypeMask,
			Data:  b[HeaderLen:l],
		})

		var next = Align(l)
		if next > len(b) {
			next = len(b)
		}
		b = b[next:]
	}
	return result, nil
}

// Decode decode attributes with policy, unknown types are ignored
func Decode(b []byte, policy Policy) (*AttributeSet, error) {
	return decode(b, policy, false)
}

// DecodeStrict decode attributes with policy, unknown types fail with ErrUnsupportedAttributeType
func DecodeStrict(b []byte, policy Policy) (*AttributeSet, error) {
	return decode(b, policy, true)
}

func decode(b []byte, policy Policy, strict bool) (*AttributeSet, error) {
	rawAttrs, err := Parse(b)
	if err != nil {
		return nil, err
	}
	var set = NewAttributeSet()
	for _, rawAttr := range rawAttrs {
		decodeFunc, ok := policy[rawAttr.Type]
		if !ok || decodeFunc == nil {
			if strict {
				return nil, NewError(KindUnsupportedAttributeType, uint32(rawAttr.Type))
			}
			continue
		}
		a, err := decodeFunc(rawAttr.Data)
		if err != nil {
			return nil, err
		}
		set.Set(rawAttr.Type, a)
	}
	return set, nil
}

func DecodeU8(data []byte) (Attribute, error) {
	if len(data) < 1 {
		return nil, ErrBufferTooSmall
	}
	return U8(data[0]), nil
}

func DecodeU16(data []byte) (Attribute, error) {
	if len(data) < 2 {
		return nil, ErrBufferTooSmall
	}
	return U16(binary.BigEndian.Uint16(data)), nil
}

func DecodeU32(data []byte) (Attribute, error) {
	if len(data) < 4 {
		return nil, ErrBufferTooSmall
	}
	return U32(binary.BigEndian.Uint32(data)), nil
}

func DecodeU64(data []byte) (Attribute, error) {
	if len(data) < 8 {
		return nil, ErrBufferTooSmall
	}
	return U64(binary.BigEndian.Uint64(data)), nil
}

func DecodeString(data []byte) (Attribute, error) {
	data = bytes.TrimRight(data, "\x00")
	if !utf8.Valid(data) {
		return nil, ErrStringDecodeFailure
	}
	return String(data), nil
}

// DecodeBytes copy the payload, the receive buffer is reused by the caller
func DecodeBytes(data []byte) (Attribute, error) {
	var b = make([]byte, len(data))
	copy(b, data)
	return Bytes(b), nil
}

func DecodeProtoFamily(data []byte) (Attribute, error) {
	if len(data) < 4 {
		return nil, ErrBufferTooSmall
	}
	var v = binary.BigEndian.Uint32(data)
	if v > 0xff || !ProtoFamily(v).IsValid() {
		return nil, NewError(KindInvalidProtocolFamily, v)
	}
	return ProtoFamily(v), nil
}

// NestedPolicy decoder for a nested attribute set
func NestedPolicy(policy Policy) DecodeFunc {
	return func(data []byte) (Attribute, error) {
		return Decode(data, policy)
	}
}

// ListPolicy decoder for a list of nested sets, elements of other types are skipped
func ListPolicy(elemType NetlinkType, policy Policy) DecodeFunc {
	return func(data []byte) (Attribute, error) {
		rawAttrs, err := Parse(data)
		if err != nil {
			return nil, err
		}
		var list = NewList(elemType)
		for _, rawAttr := range rawAttrs {
			if rawAttr.Type != elemType&TypeMask {
				continue
			}
			item, err := Decode(rawAttr.Data, policy)
			if err != nil {
				return nil, err
			}
			list.Add(item)
		}
		return list, nil
	}
}
