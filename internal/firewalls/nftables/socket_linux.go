// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .
//go:build linux

package nftables

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlmsg"
	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"
)

// NetlinkSocket NETLINK_NETFILTER socket
type NetlinkSocket struct {
	conn   *socket.Conn
	portID uint32
	closed int32
}

// OpenSocket open a netfilter netlink socket bound to a kernel chosen port id
func OpenSocket() (*NetlinkSocket, error) {
	conn, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_NETFILTER, "nftables", nil)
	if err != nil {
		return nil, err
	}

	err = conn.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	addr, err := conn.Getsockname()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	netlinkAddr, ok := addr.(*unix.SockaddrNetlink)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected socket address type '%T'", addr)
	}

	return &NetlinkSocket{
		conn:   conn,
		portID: netlinkAddr.Pid,
	}, nil
}

func (this *NetlinkSocket) Send(ctx context.Context, b []byte) error {
	if atomic.LoadInt32(&this.closed) == 1 {
		return ErrSocketClosed
	}
	_, err := this.conn.Sendmsg(ctx, b, nil, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}, 0)
	if err != nil {
		return os.NewSyscallError("sendmsg", err)
	}
	return nil
}

func (this *NetlinkSocket) Receive(ctx context.Context) ([]byte, error) {
	if atomic.LoadInt32(&this.closed) == 1 {
		return nil, ErrSocketClosed
	}
	var buf = make([]byte, nlmsg.MaxMessageSize)
	n, _, flags, _, err := this.conn.Recvmsg(ctx, buf, nil, 0)
	if err != nil {
		return nil, err
	}
	if flags&unix.MSG_TRUNC != 0 {
		return nil, fmt.Errorf("netlink datagram truncated to %d bytes", n)
	}
	return buf[:n], nil
}

func (this *NetlinkSocket) PortID() uint32 {
	return this.portID
}

func (this *NetlinkSocket) Close() error {
	if !atomic.CompareAndSwapInt32(&this.closed, 0, 1) {
		return nil
	}
	return this.conn.Close()
}

func openSocket() (Socket, error) {
	return OpenSocket()
}
