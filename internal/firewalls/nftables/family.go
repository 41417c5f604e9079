// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
)

type TableFamily = nlattr.ProtoFamily

const (
	TableFamilyINet   TableFamily = nlattr.ProtoInet
	TableFamilyIPv4   TableFamily = nlattr.ProtoIPv4
	TableFamilyIPv6   TableFamily = nlattr.ProtoIPv6
	TableFamilyARP    TableFamily = nlattr.ProtoARP
	TableFamilyNetdev TableFamily = nlattr.ProtoNetdev
	TableFamilyBridge TableFamily = nlattr.ProtoBridge
)

// isTableFamily families a table can be created in
func isTableFamily(family TableFamily) bool {
	return family != nlattr.ProtoUnspec && family.IsValid()
}
