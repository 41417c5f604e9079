// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

// Package nftest in memory sockets for tests of code talking to nftables.
package nftest

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
)

// RespondFunc replies to one sent datagram
type RespondFunc func(datagram []byte) [][]byte

// FakeSocket in memory socket, replies are produced by respond() for every sent datagram
type FakeSocket struct {
	locker  sync.Mutex
	sent    [][]byte
	queue   chan []byte
	respond RespondFunc
	closed  bool
}

func NewFakeSocket(respond RespondFunc) *FakeSocket {
	return &FakeSocket{
		queue:   make(chan []byte, 1024),
		respond: respond,
	}
}

func (this *FakeSocket) Send(ctx context.Context, b []byte) error {
	this.locker.Lock()
	if this.closed {
		this.locker.Unlock()
		return nftables.ErrSocketClosed
	}
	this.sent = append(this.sent, append([]byte{}, b...))
	this.locker.Unlock()

	if this.respond != nil {
		for _, reply := range this.respond(b) {
			this.queue <- reply
		}
	}
	return nil
}

func (this *FakeSocket) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-this.queue:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Push queue datagrams which were not replied to any send, such as late acknowledgements
func (this *FakeSocket) Push(datagrams ...[]byte) {
	for _, datagram := range datagrams {
		this.queue <- datagram
	}
}

func (this *FakeSocket) PortID() uint32 {
	return 1234
}

func (this *FakeSocket) Close() error {
	this.locker.Lock()
	this.closed = true
	this.locker.Unlock()
	return nil
}

// Sent datagrams in sending order
func (this *FakeSocket) Sent() [][]byte {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.sent
}

// SplitMessages cut a datagram into its messages
func SplitMessages(datagram []byte) [][]byte {
	var result = [][]byte{}
	for len(datagram) >= nlmsg.HeaderLen {
		var header = nlmsg.ParseHeader(datagram)
		if int(header.Len) > len(datagram) || header.Len < nlmsg.HeaderLen {
			break
		}
		result = append(result, datagram[:header.Len])
		var next = nlattr.Align(int(header.Len))
		if next > len(datagram) {
			next = len(datagram)
		}
		datagram = datagram[next:]
	}
	return result
}

// ErrorMessage error reply, code 0 is an acknowledgement
func ErrorMessage(seq uint32, code int32) []byte {
	var b = nlmsg.Header{
		Len:  nlmsg.HeaderLen + nlmsg.ErrorLen,
		Type: nlmsg.TypeError,
		Seq:  seq,
	}.AppendTo(nil)
	b = binary.NativeEndian.AppendUint32(b, uint32(-code))
	return nlmsg.Header{Len: nlmsg.HeaderLen, Seq: seq}.AppendTo(b)
}

func DoneMessage(seq uint32, flags uint16) []byte {
	var b = nlmsg.Header{
		Len:   nlmsg.HeaderLen + 4,
		Type:  nlmsg.TypeDone,
		Flags: flags,
		Seq:   seq,
	}.AppendTo(nil)
	return append(b, 0, 0, 0, 0)
}

func ObjectMessage(op uint16, seq uint32, flags uint16, family nlattr.ProtoFamily, attrs *nlattr.AttributeSet) []byte {
	var msg = &nlmsg.Message{
		Header: nlmsg.Header{
			Type:  nlmsg.NFTType(op),
			Flags: flags,
			Seq:   seq,
		},
		Nfgen: nlmsg.Nfgenmsg{Family: family},
		Attrs: attrs,
	}
	data, err := msg.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

// AckAll acknowledge every message asking for it, errors maps sequence numbers to errno
func AckAll(errors map[uint32]int32) RespondFunc {
	return func(datagram []byte) [][]byte {
		var replies = [][]byte{}
		for _, msg := range SplitMessages(datagram) {
			var header = nlmsg.ParseHeader(msg)
			if header.Flags&nlmsg.FlagAck == 0 {
				continue
			}
			replies = append(replies, ErrorMessage(header.Seq, errors[header.Seq]))
		}
		return replies
	}
}
