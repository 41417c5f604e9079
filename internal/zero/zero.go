// Copyright 2021 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package zero

type Zero = struct{}

func New() Zero {
	return Zero{}
}
