package events

import (
	"sync"

	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
)

type listener struct {
	event    Event
	key      interface{}
	callback func()
}

// callbacks run in the order they were added
var listeners = []*listener{}
var locker = sync.Mutex{}

var eventKeyId = 0

func NewKey() interface{} {
	locker.Lock()
	defer locker.Unlock()
	eventKeyId++
	return eventKeyId
}

// On 增加事件回调
func On(event Event, callback func()) {
	OnKey(event, nil, callback)
}

func OnEvents(events []Event, callback func()) {
	var key = NewKey()
	for _, event := range events {
		OnKey(event, key, callback)
	}
}

// OnClose called on quit or termination
func OnClose(callback func()) {
	OnEvents([]Event{EventQuit, EventTerminated}, callback)
}

// OnKey 使用Key增加事件回调，Key用于删除回调
func OnKey(event Event, key interface{}, callback func()) {
	if callback == nil {
		return
	}
	if key == nil {
		key = NewKey()
	}

	locker.Lock()
	listeners = append(listeners, &listener{
		event:    event,
		key:      key,
		callback: callback,
	})
	locker.Unlock()
}

// Remove 删除Key对应的所有回调
func Remove(key interface{}) {
	if key == nil {
		return
	}

	locker.Lock()
	var result = listeners[:0]
	for _, l := range listeners {
		if l.key != key {
			result = append(result, l)
		}
	}
	for i := len(result); i < len(listeners); i++ {
		listeners[i] = nil
	}
	listeners = result
	locker.Unlock()
}

// Notify 通知事件
func Notify(event Event) {
	if event == EventQuit || event == EventTerminated {
		teaconst.IsQuiting = true
	}

	// callbacks may add or remove listeners
	locker.Lock()
	var callbacks = []func(){}
	for _, l := range listeners {
		if l.event == event {
			callbacks = append(callbacks, l.callback)
		}
	}
	locker.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}
