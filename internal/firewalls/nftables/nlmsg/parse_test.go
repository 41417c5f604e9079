// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlmsg_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
	"github.com/iwind/TeaGo/assert"
)

func newTableMessage(flags uint16) []byte {
	var msg = &nlmsg.Message{
		Header: nlmsg.Header{
			Type:  nlmsg.NFTType(nlmsg.MsgNewTable),
			Flags: flags,
			Seq:   3,
		},
		Nfgen: nlmsg.Nfgenmsg{Family: nlattr.ProtoInet},
		Attrs: nlattr.NewAttributeSet().Set(1, nlattr.String("filter")),
	}
	data, _ := msg.Encode()
	return data
}

func errorMessage(code int32, seq uint32) []byte {
	var b = nlmsg.Header{
		Len:  nlmsg.HeaderLen + nlmsg.ErrorLen,
		Type: nlmsg.TypeError,
		Seq:  seq,
	}.AppendTo(nil)
	b = binary.NativeEndian.AppendUint32(b, uint32(code))
	return nlmsg.Header{Len: 20, Type: nlmsg.NFTType(nlmsg.MsgNewRule), Seq: seq}.AppendTo(b)
}

func TestParseMessage_Object(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = newTableMessage(nlmsg.FlagRequest)
	a.IsTrue(binary.NativeEndian.Uint32(data[0:4]) == uint32(len(data)))

	reply, rest, err := nlmsg.ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	a.IsTrue(len(rest) == 0)
	a.IsTrue(reply.Kind == nlmsg.ReplyObject)
	a.IsTrue(reply.Nfgen.Family == nlattr.ProtoInet)
	a.IsTrue(reply.Header.Seq == 3)
	a.IsTrue(reply.Header.Op() == nlmsg.MsgNewTable)

	attrs, err := nlmsg.ParseObject(reply, nlattr.Policy{1: nlattr.DecodeString})
	a.IsNil(err)
	name, _ := attrs.GetString(1)
	a.IsTrue(name == "filter")
}

func TestParseMessage_TooSmall(t *testing.T) {
	var a = assert.NewAssertion(t)

	{
		_, _, err := nlmsg.ParseMessage(make([]byte, 10))
		a.IsTrue(errors.Is(err, nlattr.ErrBufferTooSmall))
	}

	// declared length larger than the buffer
	{
		var data = newTableMessage(nlmsg.FlagRequest)
		binary.NativeEndian.PutUint32(data[0:4], uint32(len(data)+4))
		_, _, err := nlmsg.ParseMessage(data)
		a.IsTrue(errors.Is(err, nlattr.ErrMessageTooSmall))
	}

	// truncated error message
	{
		var data = errorMessage(0, 1)[:24]
		binary.NativeEndian.PutUint32(data[0:4], 24)
		_, _, err := nlmsg.ParseMessage(data)
		a.IsTrue(errors.Is(err, nlattr.ErrMessageTooSmall))
	}
}

func TestParseMessage_InvalidSubsystem(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = newTableMessage(nlmsg.FlagRequest)
	binary.NativeEndian.PutUint16(data[4:6], 3<<8|nlmsg.MsgNewTable)
	_, _, err := nlmsg.ParseMessage(data)
	a.IsTrue(errors.Is(err, nlattr.ErrInvalidSubsystem))
	t.Log(err)
}

func TestParseMessage_InvalidVersion(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = newTableMessage(nlmsg.FlagRequest)
	data[nlmsg.HeaderLen+1] = 1
	_, _, err := nlmsg.ParseMessage(data)
	a.IsTrue(errors.Is(err, nlattr.ErrInvalidVersion))
}

func TestParseMessage_DumpInterrupted(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = newTableMessage(nlmsg.FlagMulti | nlmsg.FlagDumpIntr)
	reply, _, err := nlmsg.ParseMessage(data)
	a.IsTrue(errors.Is(err, nlattr.ErrConcurrentGenerationUpdate))
	a.IsTrue(reply == nil)
}

func TestParseMessage_Control(t *testing.T) {
	var a = assert.NewAssertion(t)

	var data = errorMessage(-2, 6)
	data = append(data, errorMessage(0, 5)...)
	data = append(data, nlmsg.Header{Len: 16, Type: nlmsg.TypeNoop}.AppendTo(nil)...)
	data = append(data, nlmsg.Header{Len: 20, Type: nlmsg.TypeDone, Flags: nlmsg.FlagMulti}.AppendTo(nil)...)
	data = append(data, 0, 0, 0, 0)

	reply, rest, err := nlmsg.ParseMessage(data)
	a.IsNil(err)
	a.IsTrue(reply.Kind == nlmsg.ReplyError)
	a.IsTrue(reply.Error.Code == 2)
	a.IsTrue(reply.Header.Seq == 6)
	a.IsTrue(reply.Error.Original.Seq == 6)

	reply, rest, err = nlmsg.ParseMessage(rest)
	a.IsNil(err)
	a.IsTrue(reply.IsAck())
	a.IsTrue(reply.Header.Seq == 5)

	reply, rest, err = nlmsg.ParseMessage(rest)
	a.IsNil(err)
	a.IsTrue(reply.Kind == nlmsg.ReplyNoop)

	reply, rest, err = nlmsg.ParseMessage(rest)
	a.IsNil(err)
	a.IsTrue(reply.Kind == nlmsg.ReplyDone)
	a.IsTrue(len(rest) == 0)
}

func TestParseMessage_UnsupportedType(t *testing.T) {
	var a = assert.NewAssertion(t)

	_, _, err := nlmsg.ParseMessage(nlmsg.Header{Len: 16, Type: 7}.AppendTo(nil))
	a.IsTrue(errors.Is(err, nlattr.ErrUnsupportedMessageType))
}

func TestNewBatchMessage(t *testing.T) {
	var a = assert.NewAssertion(t)

	data, err := nlmsg.NewBatchMessage(nlmsg.MsgBatchBegin, 0).Encode()
	a.IsNil(err)
	a.IsTrue(len(data) == 20)
	a.IsTrue(binary.NativeEndian.Uint16(data[4:6]) == 0x10)
	a.IsTrue(binary.BigEndian.Uint16(data[18:20]) == 10)
}
