// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .
//go:build !linux

package nftables

import (
	"errors"
	"runtime"
)

func openSocket() (Socket, error) {
	return nil, errors.New("nftables: netlink sockets are not supported on '" + runtime.GOOS + "'")
}
