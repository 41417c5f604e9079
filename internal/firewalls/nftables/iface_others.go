// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .
//go:build !linux

package nftables

import (
	"errors"
)

func InterfaceIndex(name string) (uint32, error) {
	return 0, errors.New("interface index lookup is not supported")
}
