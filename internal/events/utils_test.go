package events_test

import (
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/events"
	"github.com/iwind/TeaGo/assert"
)

func TestOn(t *testing.T) {
	type User struct {
		name string
	}
	var u = &User{name: "lily"}
	var u2 = &User{name: "lucy"}

	var calls = []string{}
	events.On("hello", func() {
		calls = append(calls, "world")
	})
	events.On("hello", func() {
		calls = append(calls, "world2")
	})
	events.OnKey("hello", u, func() {
		calls = append(calls, "world3")
	})
	events.OnKey("hello", u, func() {
		calls = append(calls, "world4")
	})
	events.Remove(u)
	events.Remove(u2)
	events.OnKey("hello2", nil, func() {
		calls = append(calls, "hello2")
	})
	events.Notify("hello")
	t.Log(calls)

	var a = assert.NewAssertion(t)
	a.IsTrue(len(calls) == 2)
	a.IsTrue(calls[0] == "world" && calls[1] == "world2")
}

func TestOnClose(t *testing.T) {
	var a = assert.NewAssertion(t)

	var count = 0
	events.OnClose(func() {
		count++
	})
	events.Notify(events.EventTerminated)
	events.Notify(events.EventQuit)
	a.IsTrue(count == 2)
}

func TestNotify_AddInCallback(t *testing.T) {
	var a = assert.NewAssertion(t)

	var calls = 0
	events.On("outer", func() {
		events.On("outer", func() {
			calls++
		})
	})
	events.Notify("outer")
	a.IsTrue(calls == 0)
	events.Notify("outer")
	a.IsTrue(calls == 1)
}

func TestNotify_Quit(t *testing.T) {
	var a = assert.NewAssertion(t)

	var closed = 0
	var key = events.NewKey()
	events.OnKey(events.EventReload, key, func() {
		closed++
	})
	events.Notify(events.EventReload)
	events.Remove(key)
	events.Notify(events.EventReload)
	a.IsTrue(closed == 1)
}
