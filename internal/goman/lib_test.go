// Copyright 2021 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package goman

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	var done = make(chan bool)
	var running = make(chan bool)
	New(func() {
		running <- true
		<-done
	})
	<-running

	var list = List()
	t.Log(len(list))
	if len(list) == 0 {
		t.Fatal("instance should be tracked while running")
	}
	close(done)

	time.Sleep(100 * time.Millisecond)
	for _, instance := range List() {
		t.Log(instance.Id, instance.File, instance.Line)
	}
}

func TestNewWithArgs(t *testing.T) {
	var result = make(chan int, 1)
	NewWithArgs(func(args ...interface{}) {
		result <- args[0].(int) + args[1].(int)
	}, 1, 2)
	if <-result != 3 {
		t.Fatal("invalid result")
	}
}
