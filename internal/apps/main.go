// Copyright 2023 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package apps

import (
	"os"

	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
)

// RunMain run a directive, the process exits with code 1 if it fails
func RunMain(f func() error) {
	err := f()
	_ = remotelogs.Flush()
	if err != nil {
		_, _ = os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
