// Copyright 2021 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package teaconst

var (
	IsDaemon  = false
	IsQuiting = false // 是否正在退出

	// Tag build tag, filled by the build script
	Tag = "community"
)
