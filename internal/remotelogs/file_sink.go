// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package remotelogs

import (
	"encoding/json"
	"sync"

	"github.com/iwind/TeaGo/files"
)

// FileSink append logs to a file as JSON lines
type FileSink struct {
	locker   sync.Mutex
	appender *files.Appender
}

func NewFileSink(path string) (*FileSink, error) {
	appender, err := files.NewFile(path).Appender()
	if err != nil {
		return nil, err
	}
	return &FileSink{
		appender: appender,
	}, nil
}

func (this *FileSink) Write(logList []*Log) error {
	this.locker.Lock()
	defer this.locker.Unlock()

	for _, log := range logList {
		data, err := json.Marshal(log)
		if err != nil {
			return err
		}
		_, err = this.appender.AppendString(string(data) + "\n")
		if err != nil {
			return err
		}
	}
	return nil
}

func (this *FileSink) Close() error {
	this.locker.Lock()
	defer this.locker.Unlock()
	return this.appender.Close()
}
