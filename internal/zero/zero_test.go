// Copyright 2021 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package zero

import (
	"testing"
	"unsafe"
)

func TestZero_Size(t *testing.T) {
	if unsafe.Sizeof(New()) != 0 {
		t.Fatal("zero must not take memory")
	}
}

func TestZero_Map(t *testing.T) {
	var m = map[string]Zero{}
	m["a"] = New()
	_, ok := m["a"]
	if !ok {
		t.Fatal("key not found")
	}
}
