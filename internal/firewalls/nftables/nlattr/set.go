// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AttributeSet attributes of one object, keyed by type
// Attributes are always serialized in ascending type order.
type AttributeSet struct {
	attrs map[NetlinkType]Attribute
}

func NewAttributeSet() *AttributeSet {
	return &AttributeSet{
		attrs: map[NetlinkType]Attribute{},
	}
}

// Set add or replace an attribute, flag bits of t are ignored
func (this *AttributeSet) Set(t NetlinkType, a Attribute) *AttributeSet {
	if a == nil {
		return this
	}
	if this.attrs == nil {
		this.attrs = map[NetlinkType]Attribute{}
	}
	this.attrs[t&TypeMask] = a
	return this
}

func (this *AttributeSet) Get(t NetlinkType) (Attribute, bool) {
	if this == nil {
		return nil, false
	}
	a, ok := this.attrs[t&TypeMask]
	return a, ok
}

func (this *AttributeSet) Has(t NetlinkType) bool {
	_, ok := this.Get(t)
	return ok
}

func (this *AttributeSet) Delete(t NetlinkType) {
	if this == nil {
		return
	}
	delete(this.attrs, t&TypeMask)
}

func (this *AttributeSet) Len() int {
	if this == nil {
		return 0
	}
	return len(this.attrs)
}

// Types sorted attribute types
func (this *AttributeSet) Types() []NetlinkType {
	if this == nil {
		return nil
	}
	var result = make([]NetlinkType, 0, len(this.attrs))
	for t := range this.attrs {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	return result
}

func (this *AttributeSet) GetU8(t NetlinkType) (uint8, bool) {
	a, _ := this.Get(t)
	v, ok := a.(U8)
	return uint8(v), ok
}

func (this *AttributeSet) GetU16(t NetlinkType) (uint16, bool) {
	a, _ := this.Get(t)
	v, ok := a.(U16)
	return uint16(v), ok
}

func (this *AttributeSet) GetU32(t NetlinkType) (uint32, bool) {
	a, _ := this.Get(t)
	v, ok := a.(U32)
	return uint32(v), ok
}

func (this *AttributeSet) GetU64(t NetlinkType) (uint64, bool) {
	a, _ := this.Get(t)
	v, ok := a.(U64)
	return uint64(v), ok
}

func (this *AttributeSet) GetString(t NetlinkType) (string, bool) {
	a, _ := this.Get(t)
	v, ok := a.(String)
	return string(v), ok
}

func (this *AttributeSet) GetBytes(t NetlinkType) ([]byte, bool) {
	a, _ := this.Get(t)
	v, ok := a.(Bytes)
	return v, ok
}

func (this *AttributeSet) GetProtoFamily(t NetlinkType) (ProtoFamily, bool) {
	a, _ := this.Get(t)
	v, ok := a.(ProtoFamily)
	return v, ok
}

func (this *AttributeSet) GetSet(t NetlinkType) (*AttributeSet, bool) {
	a, _ := this.Get(t)
	v, ok := a.(*AttributeSet)
	return v, ok
}

func (this *AttributeSet) GetList(t NetlinkType) (*List, bool) {
	a, _ := this.Get(t)
	v, ok := a.(*List)
	return v, ok
}

func (this *AttributeSet) PayloadLen() int {
	if this == nil {
		return 0
	}
	var l = 0
	for _, a := range this.attrs {
		l += Align(HeaderLen + a.PayloadLen())
	}
	return l
}

func (this *AttributeSet) appendPayload(b []byte) []byte {
	for _, t := range this.Types() {
		b = appendAttribute(b, t, this.attrs[t])
	}
	return b
}

// Validate every attribute must fit the 16 bits length field of its header
// Nested attributes are shorter than their parent, checking the top level is enough.
func (this *AttributeSet) Validate() error {
	if this == nil {
		return nil
	}
	for t, a := range this.attrs {
		var l = HeaderLen + a.PayloadLen()
		if l > MaxAttributeLen {
			return fmt.Errorf("%w: type %d needs %d bytes", ErrAttributeTooLarge, t, l)
		}
	}
	return nil
}

// AppendTo append encoded attributes to b
func (this *AttributeSet) AppendTo(b []byte) ([]byte, error) {
	err := this.Validate()
	if err != nil {
		return b, err
	}
	return this.appendPayload(b), nil
}

// Encode encode all attributes
func (this *AttributeSet) Encode() ([]byte, error) {
	return this.AppendTo(make([]byte, 0, this.PayloadLen()))
}

func (this *AttributeSet) Equal(other *AttributeSet) bool {
	if this.Len() != other.Len() {
		return false
	}
	if this.Len() == 0 {
		return true
	}
	for t, a := range this.attrs {
		b, ok := other.attrs[t]
		if !ok || !Equal(a, b) {
			return false
		}
	}
	return true
}

func (this *AttributeSet) String() string {
	var pieces = []string{}
	for _, t := range this.Types() {
		pieces = append(pieces, strconv.Itoa(int(t))+":"+describe(this.attrs[t]))
	}
	return "{" + strings.Join(pieces, " ") + "}"
}
