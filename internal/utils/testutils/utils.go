// Copyright 2023 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package testutils

import (
	"os"
	"strings"

	"github.com/iwind/TeaGo/rands"
	"github.com/iwind/TeaGo/types"
)

// IsSingleTesting 判断当前测试环境是否为单个函数测试
// tests touching the real kernel only run with -run
func IsSingleTesting() bool {
	for _, arg := range os.Args {
		if arg == "-test.run" || strings.HasPrefix(arg, "-test.run=") {
			return true
		}
	}
	return false
}

// RandIP 生成一个随机IPv4地址
func RandIP() string {
	return types.String(rands.Int(1, 254)) + "." + types.String(rands.Int(0, 255)) + "." + types.String(rands.Int(0, 255)) + "." + types.String(rands.Int(1, 254))
}
