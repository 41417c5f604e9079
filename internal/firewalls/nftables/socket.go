// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package nftables

import (
	"context"
	"errors"
)

var ErrSocketClosed = errors.New("socket closed")

// Socket datagram transport to the nftables subsystem
type Socket interface {
	// Send write one datagram
	Send(ctx context.Context, b []byte) error

	// Receive read one datagram
	Receive(ctx context.Context) ([]byte, error)

	// PortID netlink port id assigned by the kernel
	PortID() uint32

	Close() error
}
