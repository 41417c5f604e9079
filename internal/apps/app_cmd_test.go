// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package apps_test

import (
	"strings"
	"testing"

	"github.com/TeaOSLab/EdgeNFT/internal/apps"
	"github.com/iwind/TeaGo/assert"
)

func TestAppCmd_Help(t *testing.T) {
	var a = assert.NewAssertion(t)

	var app = apps.NewAppCmd().
		Product("Edge NFT").
		Version("1.0.0").
		Usage("edge-nft [apply|list]").
		Option("apply", "apply ruleset").
		Option("delete-table --name=NAME [--family=FAMILY] --very-long-option", "delete a table").
		Append("bye")

	var help = app.Help()
	t.Log("\n" + help)
	a.IsTrue(strings.HasPrefix(help, "Edge NFT v1.0.0\n"))
	a.IsTrue(strings.Contains(help, "   edge-nft [apply|list]\n"))
	a.IsTrue(strings.Contains(help, ": apply ruleset"))
	a.IsTrue(strings.Contains(help, "\n  delete-table --name=NAME [--family=FAMILY] --very-long-option\n"))
	a.IsTrue(strings.HasSuffix(help, "bye\n"))
}

func TestAppCmd_ParseOptions(t *testing.T) {
	var a = assert.NewAssertion(t)

	var options = apps.NewAppCmd().ParseOptions([]string{"--ruleset=/etc/edge/ruleset.yaml", "-family = ip6", "--dry", "--ip=1.1.1.1", "--ip=2.2.2.2"})
	t.Log(options)
	a.IsTrue(options["ruleset"][0] == "/etc/edge/ruleset.yaml")
	a.IsTrue(options["family"][0] == "ip6")
	a.IsTrue(len(options["dry"]) == 1 && options["dry"][0] == "")
	a.IsTrue(len(options["ip"]) == 2)
}

func TestAppCmd_RunArgs(t *testing.T) {
	var a = assert.NewAssertion(t)

	var calls = []string{}
	var app = apps.NewAppCmd().
		On("apply:before", func() {
			calls = append(calls, "before")
		}).
		On("apply", func() {
			calls = append(calls, "apply")
		}).
		On("list", func() {
			calls = append(calls, "list")
		})
	a.IsTrue(strings.Join(app.Directives(), ",") == "apply,list")

	app.RunArgs([]string{"apply", "--ruleset=a.yaml"}, func() {
		calls = append(calls, "main")
	})
	a.IsTrue(strings.Join(calls, ",") == "before,apply")

	calls = nil
	app.RunArgs([]string{"unknown"}, func() {
		calls = append(calls, "main")
	})
	a.IsTrue(len(calls) == 0)
}
