// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nlattr

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindBufferTooSmall ErrorKind = iota + 1
	KindMessageTooSmall
	KindInvalidSubsystem
	KindInvalidVersion
	KindConcurrentGenerationUpdate
	KindUnsupportedMessageType
	KindUnsupportedAttributeType
	KindStringDecodeFailure
	KindInvalidProtocolFamily
	KindCustom
)

func (this ErrorKind) String() string {
	switch this {
	case KindBufferTooSmall:
		return "buffer too small"
	case KindMessageTooSmall:
		return "message too small"
	case KindInvalidSubsystem:
		return "invalid subsystem"
	case KindInvalidVersion:
		return "invalid version"
	case KindConcurrentGenerationUpdate:
		return "concurrent generation update"
	case KindUnsupportedMessageType:
		return "unsupported message type"
	case KindUnsupportedAttributeType:
		return "unsupported attribute type"
	case KindStringDecodeFailure:
		return "string decode failure"
	case KindInvalidProtocolFamily:
		return "invalid protocol family"
	case KindCustom:
		return "decode failure"
	}
	return fmt.Sprintf("decode error(%d)", int(this))
}

// DecodeError error raised while parsing data received from the kernel
type DecodeError struct {
	Kind  ErrorKind
	Value uint32 // offending subsystem, version or type, if any
	Err   error
}

func (this *DecodeError) Error() string {
	var s = "nftables: " + this.Kind.String()
	switch this.Kind {
	case KindInvalidSubsystem, KindInvalidVersion, KindUnsupportedMessageType, KindUnsupportedAttributeType, KindInvalidProtocolFamily:
		s += fmt.Sprintf(" (%d)", this.Value)
	}
	if this.Err != nil {
		s += ": " + this.Err.Error()
	}
	return s
}

func (this *DecodeError) Unwrap() error {
	return this.Err
}

// Is errors of the same kind match each other
func (this *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == this.Kind
}

var (
	ErrBufferTooSmall             = &DecodeError{Kind: KindBufferTooSmall}
	ErrMessageTooSmall            = &DecodeError{Kind: KindMessageTooSmall}
	ErrInvalidSubsystem           = &DecodeError{Kind: KindInvalidSubsystem}
	ErrInvalidVersion             = &DecodeError{Kind: KindInvalidVersion}
	ErrConcurrentGenerationUpdate = &DecodeError{Kind: KindConcurrentGenerationUpdate}
	ErrUnsupportedMessageType     = &DecodeError{Kind: KindUnsupportedMessageType}
	ErrUnsupportedAttributeType   = &DecodeError{Kind: KindUnsupportedAttributeType}
	ErrStringDecodeFailure        = &DecodeError{Kind: KindStringDecodeFailure}
	ErrInvalidProtocolFamily      = &DecodeError{Kind: KindInvalidProtocolFamily}
)

// ErrAttributeTooLarge attribute can not be encoded, its length does not fit the header
var ErrAttributeTooLarge = errors.New("nftables: attribute too large")

func NewError(kind ErrorKind, value uint32) error {
	return &DecodeError{Kind: kind, Value: value}
}

// Custom wrap any other failure as a decode error
func Custom(err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Kind: KindCustom, Err: err}
}
