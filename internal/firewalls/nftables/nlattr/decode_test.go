// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/iwind/TeaGo/assert"
	"github.com/mdlayher/netlink"
)

var testPolicy = nlattr.Policy{
	1: nlattr.DecodeU8,
	2: nlattr.DecodeU16,
	3: nlattr.DecodeU32,
	4: nlattr.DecodeU64,
	5: nlattr.DecodeString,
	6: nlattr.DecodeBytes,
	7: nlattr.DecodeProtoFamily,
	8: nlattr.NestedPolicy(nlattr.Policy{
		1: nlattr.DecodeString,
		2: nlattr.DecodeU32,
	}),
	9: nlattr.ListPolicy(1, nlattr.Policy{
		1: nlattr.DecodeString,
	}),
}

func encode(t *testing.T, set *nlattr.AttributeSet) []byte {
	data, err := set.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecode_RoundTrip(t *testing.T) {
	var a = assert.NewAssertion(t)

	var set = nlattr.NewAttributeSet().
		Set(1, nlattr.U8(0xab)).
		Set(2, nlattr.U16(0x1234)).
		Set(3, nlattr.U32(0xdeadbeef)).
		Set(4, nlattr.U64(1<<40+7)).
		Set(5, nlattr.String("filter")).
		Set(6, nlattr.Bytes{1, 2, 3}).
		Set(7, nlattr.ProtoIPv6).
		Set(8, nlattr.NewAttributeSet().Set(1, nlattr.String("input")).Set(2, nlattr.U32(0))).
		Set(9, nlattr.NewList(1).
			Add(nlattr.NewAttributeSet().Set(1, nlattr.String("a"))).
			Add(nlattr.NewAttributeSet().Set(1, nlattr.String("bc"))))

	var data = encode(t, set)
	a.IsTrue(len(data) == set.PayloadLen())
	a.IsTrue(len(data)%4 == 0)

	decoded, err := nlattr.Decode(data, testPolicy)
	if err != nil {
		t.Fatal(err)
	}
	t.Log(decoded)
	a.IsTrue(decoded.Equal(set))

	// ordered by type
	rawAttrs, err := nlattr.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(rawAttrs); i++ {
		a.IsTrue(rawAttrs[i-1].Type < rawAttrs[i].Type)
	}
	a.IsTrue(rawAttrs[7].IsNested())
	a.IsTrue(rawAttrs[8].IsNested())
	a.IsFalse(rawAttrs[0].IsNested())
}

func TestAttribute_Padding(t *testing.T) {
	var a = assert.NewAssertion(t)

	for size := 0; size < 20; size++ {
		var payload = make([]byte, size)
		var set = nlattr.NewAttributeSet().
			Set(1, nlattr.Bytes(payload)).
			Set(2, nlattr.U32(7))
		var data = encode(t, set)

		var expected = 4 * ((4 + size + 3) / 4)
		a.IsTrue(binary.NativeEndian.Uint16(data[0:2]) == uint16(4+size))

		// the second attribute starts right after the padded first one
		a.IsTrue(binary.NativeEndian.Uint16(data[expected:expected+2]) == 8)
		a.IsTrue(binary.NativeEndian.Uint16(data[expected+2:expected+4]) == 2)
		a.IsTrue(len(data) == expected+8)
	}
}

func TestEncode_TooLarge(t *testing.T) {
	var a = assert.NewAssertion(t)

	// largest payload the 16 bits length field can describe
	{
		var set = nlattr.NewAttributeSet().Set(6, nlattr.Bytes(make([]byte, nlattr.MaxAttributeLen-nlattr.HeaderLen)))
		data, err := set.Encode()
		a.IsNil(err)
		a.IsTrue(binary.NativeEndian.Uint16(data[0:2]) == 0xffff)

		decoded, err := nlattr.Decode(data, testPolicy)
		a.IsNil(err)
		a.IsTrue(decoded.Equal(set))
	}

	{
		var set = nlattr.NewAttributeSet().Set(6, nlattr.Bytes(make([]byte, 70000)))
		_, err := set.Encode()
		t.Log(err)
		a.IsTrue(errors.Is(err, nlattr.ErrAttributeTooLarge))

		_, err = set.AppendTo(nil)
		a.IsTrue(errors.Is(err, nlattr.ErrAttributeTooLarge))
	}

	// nested payload counts for the parent
	{
		var set = nlattr.NewAttributeSet().Set(8, nlattr.NewAttributeSet().
			Set(1, nlattr.Bytes(make([]byte, 40000))).
			Set(2, nlattr.Bytes(make([]byte, 40000))))
		_, err := set.Encode()
		a.IsTrue(errors.Is(err, nlattr.ErrAttributeTooLarge))
	}
}

func TestDecode_BufferTooSmall(t *testing.T) {
	var a = assert.NewAssertion(t)

	// short header
	{
		_, err := nlattr.Decode([]byte{8, 0}, testPolicy)
		a.IsTrue(errors.Is(err, nlattr.ErrBufferTooSmall))
	}

	// declared length exceeds the buffer
	{
		var data = encode(t, nlattr.NewAttributeSet().Set(3, nlattr.U32(1)))
		binary.NativeEndian.PutUint16(data[0:2], 12)
		_, err := nlattr.Decode(data, testPolicy)
		a.IsTrue(errors.Is(err, nlattr.ErrBufferTooSmall))
	}

	// declared length below header size
	{
		var data = []byte{0, 0, 0, 0}
		binary.NativeEndian.PutUint16(data[0:2], 2)
		_, err := nlattr.Decode(data, testPolicy)
		a.IsTrue(errors.Is(err, nlattr.ErrBufferTooSmall))
	}

	// integer payload shorter than its type
	{
		var data = encode(t, nlattr.NewAttributeSet().Set(3, nlattr.U16(1)))
		_, err := nlattr.Decode(data, testPolicy)
		a.IsTrue(errors.Is(err, nlattr.ErrBufferTooSmall))
	}
}

func TestDecode_Unknown(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = encode(t, nlattr.NewAttributeSet().
		Set(3, nlattr.U32(1)).
		Set(30, nlattr.U32(2)))

	set, err := nlattr.Decode(data, testPolicy)
	a.IsNil(err)
	a.IsTrue(set.Len() == 1)

	_, err = nlattr.DecodeStrict(data, testPolicy)
	a.IsTrue(errors.Is(err, nlattr.ErrUnsupportedAttributeType))
	var decodeErr *nlattr.DecodeError
	a.IsTrue(errors.As(err, &decodeErr))
	a.IsTrue(decodeErr.Value == 30)
	t.Log(err)
}

func TestDecode_String(t *testing.T) {
	var a = assert.NewAssertion(t)

	attr, err := nlattr.DecodeString([]byte("abc\x00\x00"))
	a.IsNil(err)
	a.IsTrue(attr == nlattr.String("abc"))

	_, err = nlattr.DecodeString([]byte{0xff, 0xfe, 0})
	a.IsTrue(errors.Is(err, nlattr.ErrStringDecodeFailure))
}

func TestDecode_ProtoFamily(t *testing.T) {
	var a = assert.NewAssertion(t)

	_, err := nlattr.DecodeProtoFamily([]byte{0, 0, 0, 4})
	a.IsTrue(errors.Is(err, nlattr.ErrInvalidProtocolFamily))

	attr, err := nlattr.DecodeProtoFamily([]byte{0, 0, 0, 7})
	a.IsNil(err)
	a.IsTrue(attr == nlattr.ProtoBridge)
}

func TestDecode_FlagsMasked(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = encode(t, nlattr.NewAttributeSet().Set(3, nlattr.U32(9)))
	binary.NativeEndian.PutUint16(data[2:4], uint16(3|nlattr.FlagNetByteOrder))

	set, err := nlattr.Decode(data, testPolicy)
	a.IsNil(err)
	v, ok := set.GetU32(3)
	a.IsTrue(ok)
	a.IsTrue(v == 9)
}

// the wire format must match what the mdlayher/netlink encoder produces
func TestEncode_MatchNetlinkEncoder(t *testing.T) {
	var a = assert.NewAssertion(t)

	var encoder = netlink.NewAttributeEncoder()
	encoder.ByteOrder = binary.BigEndian
	encoder.Uint8(1, 0xab)
	encoder.Uint16(2, 0x1234)
	encoder.Uint32(3, 0xdeadbeef)
	encoder.Uint64(4, 42)
	encoder.String(5, "filter")
	encoder.Bytes(6, []byte{1, 2, 3, 4, 5})
	encoder.Nested(8, func(nae *netlink.AttributeEncoder) error {
		nae.String(1, "input")
		nae.Uint32(2, 0)
		return nil
	})
	expected, err := encoder.Encode()
	if err != nil {
		t.Fatal(err)
	}

	var data = encode(t, nlattr.NewAttributeSet().
		Set(1, nlattr.U8(0xab)).
		Set(2, nlattr.U16(0x1234)).
		Set(3, nlattr.U32(0xdeadbeef)).
		Set(4, nlattr.U64(42)).
		Set(5, nlattr.String("filter")).
		Set(6, nlattr.Bytes{1, 2, 3, 4, 5}).
		Set(8, nlattr.NewAttributeSet().Set(1, nlattr.String("input")).Set(2, nlattr.U32(0))))

	a.IsTrue(string(expected) == string(data))
}
