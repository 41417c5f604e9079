// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .
//go:build linux

package nftables

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// InterfaceIndex index of a network interface, for Rule.IifIndex() and Rule.OifIndex()
func InterfaceIndex(name string) (uint32, error) {
	if len(name) >= maxInterfaceNameLength {
		return 0, fmt.Errorf("%w: '%s'", ErrInterfaceNameTooLong, name)
	}
	link, err := netlink.LinkByName(name)
	if err != nil {
		return 0, fmt.Errorf("lookup interface '%s' failed: %w", name, err)
	}
	return uint32(link.Attrs().Index), nil
}
