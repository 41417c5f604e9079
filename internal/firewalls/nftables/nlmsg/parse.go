// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlmsg

import (
	"encoding/binary"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

type ReplyKind int

const (
	ReplyNoop ReplyKind = iota + 1
	ReplyDone
	ReplyError
	ReplyObject
)

func (this ReplyKind) String() string {
	switch this {
	case ReplyNoop:
		return "noop"
	case ReplyDone:
		return "done"
	case ReplyError:
		return "error"
	case ReplyObject:
		return "object"
	}
	return "unknown"
}

// ErrorReply payload of NLMSG_ERROR, Code is 0 for a pure acknowledgement
type ErrorReply struct {
	Code     int32 // positive errno
	Original Header
}

// Reply one classified message from the kernel
type Reply struct {
	Header  Header
	Kind    ReplyKind
	Error   ErrorReply // ReplyError only
	Nfgen   Nfgenmsg   // ReplyObject only
	Payload []byte     // attributes of a ReplyObject
}

func (this *Reply) IsAck() bool {
	return this.Kind == ReplyError && this.Error.Code == 0
}

// ParseMessage decode the first message of b and return the bytes that follow it
// A message flagged as dump interrupted is rejected as a whole.
func ParseMessage(b []byte) (reply *Reply, rest []byte, err error) {
	if len(b) < HeaderLen {
		return nil, nil, nlattr.ErrBufferTooSmall
	}
	var header = ParseHeader(b)
	if header.Len < HeaderLen || int(header.Len) > len(b) {
		return nil, nil, nlattr.ErrMessageTooSmall
	}
	if header.Flags&FlagDumpIntr != 0 {
		return nil, nil, nlattr.ErrConcurrentGenerationUpdate
	}

	var msg = b[:header.Len]
	var next = nlattr.Align(int(header.Len))
	if next > len(b) {
		next = len(b)
	}
	rest = b[next:]

	if header.Type < MinType {
		switch header.Type {
		case TypeNoop:
			return &Reply{Header: header, Kind: ReplyNoop}, rest, nil
		case TypeDone:
			return &Reply{Header: header, Kind: ReplyDone}, rest, nil
		case TypeError:
			if len(msg) < HeaderLen+ErrorLen {
				return nil, nil, nlattr.ErrMessageTooSmall
			}
			var code = int32(binary.NativeEndian.Uint32(msg[HeaderLen : HeaderLen+4]))
			// some callers report negative values, others positive ones
			if code < 0 {
				code = -code
			}
			return &Reply{
				Header: header,
				Kind:   ReplyError,
				Error: ErrorReply{
					Code:     code,
					Original: ParseHeader(msg[HeaderLen+4:]),
				},
			}, rest, nil
		}
		return nil, nil, nlattr.NewError(nlattr.KindUnsupportedMessageType, uint32(header.Type))
	}

	if header.Subsystem() != SubsysNFTables {
		return nil, nil, nlattr.NewError(nlattr.KindInvalidSubsystem, uint32(header.Subsystem()))
	}
	if len(msg) < HeaderLen+NfgenmsgLen {
		return nil, nil, nlattr.ErrMessageTooSmall
	}
	var nfgen = ParseNfgenmsg(msg[HeaderLen:])
	if nfgen.Version != NetlinkV0 {
		return nil, nil, nlattr.NewError(nlattr.KindInvalidVersion, uint32(nfgen.Version))
	}

	return &Reply{
		Header:  header,
		Kind:    ReplyObject,
		Nfgen:   nfgen,
		Payload: msg[HeaderLen+NfgenmsgLen:],
	}, rest, nil
}

// ParseObject decode attributes of an object reply
func ParseObject(reply *Reply, policy nlattr.Policy) (*nlattr.AttributeSet, error) {
	if reply.Kind != ReplyObject {
		return nil, nlattr.NewError(nlattr.KindUnsupportedMessageType, uint32(reply.Header.Type))
	}
	return nlattr.Decode(reply.Payload, policy)
}
