// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package remotelogs_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
	"github.com/iwind/TeaGo/assert"
)

type memorySink struct {
	logs []*remotelogs.Log
}

func (this *memorySink) Write(logList []*remotelogs.Log) error {
	this.logs = append(this.logs, logList...)
	return nil
}

func TestFlush(t *testing.T) {
	var a = assert.NewAssertion(t)

	var sink = &memorySink{}
	remotelogs.SetSink(sink)
	defer remotelogs.SetSink(nil)

	remotelogs.Println("RULESET", "applied 1 table(s)")
	remotelogs.Println("RULESET", "applied 1 table(s)")
	remotelogs.Warn("RULESET", "read generation failed")
	remotelogs.ErrorObject("RULESET", errors.New("batch failed"))
	remotelogs.ErrorObject("RULESET", nil)

	err := remotelogs.Flush()
	a.IsNil(err)
	a.IsTrue(len(sink.logs) == 3)
	a.IsTrue(sink.logs[0].Level == "info")
	a.IsTrue(sink.logs[1].Level == "warning")
	a.IsTrue(sink.logs[2].Level == "error")
	a.IsTrue(sink.logs[2].Role == "nft")

	// nothing left
	err = remotelogs.Flush()
	a.IsNil(err)
	a.IsTrue(len(sink.logs) == 3)
}

func TestFileSink(t *testing.T) {
	var a = assert.NewAssertion(t)

	var path = filepath.Join(t.TempDir(), "nft.log")
	sink, err := remotelogs.NewFileSink(path)
	if err != nil {
		t.Fatal(err)
	}
	remotelogs.SetSink(sink)
	defer remotelogs.SetSink(nil)

	remotelogs.Success("NODE", "watching")
	remotelogs.Error("NODE", "apply failed")
	a.IsNil(remotelogs.Flush())
	a.IsNil(sink.Close())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	a.IsTrue(len(lines) == 2)

	var log = &remotelogs.Log{}
	err = json.Unmarshal([]byte(lines[1]), log)
	a.IsNil(err)
	a.IsTrue(log.Tag == "NODE")
	a.IsTrue(log.Level == "error")
	a.IsTrue(log.CreatedAt > 0)
}
