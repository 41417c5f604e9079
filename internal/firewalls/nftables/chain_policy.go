// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

// ChainPolicy default verdict of a base chain
type ChainPolicy uint32

// Possible ChainPolicy values.
const (
	ChainPolicyDrop   ChainPolicy = 0
	ChainPolicyAccept ChainPolicy = 1
)

func (this ChainPolicy) String() string {
	if this == ChainPolicyAccept {
		return "accept"
	}
	return "drop"
}
