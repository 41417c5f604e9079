// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package utils

import "strings"

// RemoveWorkspace shorten a source path to the part starting from the project directory
// such as "/EdgeNFT/internal/rulesets/applier.go"
func RemoveWorkspace(path string) string {
	var index = strings.LastIndex(path, "/Edge")
	if index < 0 {
		return path
	}

	// project directories are named like 'EdgeNFT'
	var rest = path[index+len("/Edge"):]
	if len(rest) == 0 || rest[0] < 'A' || rest[0] > 'Z' || !strings.Contains(rest, "/") {
		return path
	}
	return path[index:]
}
