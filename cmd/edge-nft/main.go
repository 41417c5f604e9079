package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/TeaOSLab/EdgeNFT/internal/apps"
	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/nodes"
	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
	"github.com/TeaOSLab/EdgeNFT/internal/rulesets"
	_ "github.com/iwind/TeaGo/bootstrap"
	"github.com/iwind/TeaGo/types"
)

func main() {
	var app = apps.NewAppCmd().
		Version(teaconst.Version).
		Product(teaconst.ProductName).
		Usage(teaconst.ProcessName + " [-v|help|apply|verify|remove|list|delete-table|generation|watch]").
		Usage(teaconst.ProcessName + " [allow-ip|drop-ip|reject-ip|remove-ip|allow-port|remove-port]").
		Option("-v", "show version").
		Option("help", "show this help").
		Option("apply [--ruleset=FILE]", "replace tables of the ruleset in the kernel").
		Option("verify [--ruleset=FILE]", "compare the kernel with the ruleset").
		Option("remove [--ruleset=FILE]", "delete tables of the ruleset").
		Option("list [--family=FAMILY]", "list tables, chains and rules, all families by default").
		Option("delete-table --name=NAME [--family=FAMILY]", "delete a table").
		Option("generation", "show ruleset generation").
		Option("watch [--ruleset=FILE]", "apply the ruleset again whenever the file changes").
		Option("allow-ip|drop-ip|reject-ip|remove-ip --ip=IP", "manage source IPs of the firewall table").
		Option("allow-port|remove-port --port=PORT [--protocol=tcp]", "manage open ports of the firewall table").
		Append("Configuration is read from configs/" + configs.NFTConfigFileName + ", the default ruleset is configs/" + configs.RulesetFileName + ".")

	var options = app.ParseOptions(os.Args[min(len(os.Args), 2):])

	app.On("apply", func() {
		apps.RunMain(func() error {
			return withApplier(options, func(ctx context.Context, applier *rulesets.Applier, rulesetConfig *configs.RulesetConfig) error {
				result, err := applier.Apply(ctx, rulesetConfig)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d table(s), %d rule(s), generation: %d, cost: %.2fms\n", len(rulesetConfig.Tables), rulesetConfig.CountRules(), result.Generation, result.CostMs)
				return nil
			})
		})
	})
	app.On("verify", func() {
		apps.RunMain(func() error {
			return withApplier(options, func(ctx context.Context, applier *rulesets.Applier, rulesetConfig *configs.RulesetConfig) error {
				report, err := applier.Verify(ctx, rulesetConfig)
				if err != nil {
					return err
				}
				for _, missing := range report.Missing {
					fmt.Println("missing: " + missing)
				}
				for _, changed := range report.Changed {
					fmt.Println("changed: " + changed)
				}
				if !report.InSync() {
					return errors.New("kernel ruleset is out of sync")
				}
				fmt.Println("in sync")
				return nil
			})
		})
	})
	app.On("remove", func() {
		apps.RunMain(func() error {
			return withApplier(options, func(ctx context.Context, applier *rulesets.Applier, rulesetConfig *configs.RulesetConfig) error {
				err := applier.Remove(ctx, rulesetConfig)
				if err != nil {
					return err
				}
				fmt.Printf("removed %d table(s)\n", len(rulesetConfig.Tables))
				return nil
			})
		})
	})
	app.On("list", func() {
		apps.RunMain(func() error {
			family, err := parseFamily(option(options, "family", "all"))
			if err != nil {
				return err
			}
			return withConn(func(ctx context.Context, conn *nftables.Conn) error {
				return list(ctx, conn, family)
			})
		})
	})
	app.On("delete-table", func() {
		apps.RunMain(func() error {
			var name = option(options, "name", "")
			if len(name) == 0 {
				return errors.New("'--name' is required")
			}
			family, err := parseFamily(option(options, "family", "inet"))
			if err != nil {
				return err
			}
			return withConn(func(ctx context.Context, conn *nftables.Conn) error {
				err := conn.DeleteTable(ctx, name, family)
				if err != nil {
					return err
				}
				fmt.Println("deleted table " + family.String() + " " + name)
				return nil
			})
		})
	})
	app.On("generation", func() {
		apps.RunMain(func() error {
			return withConn(func(ctx context.Context, conn *nftables.Conn) error {
				generation, err := conn.Generation(ctx)
				if err != nil {
					return err
				}
				fmt.Println(generation)
				return nil
			})
		})
	})
	app.On("watch", func() {
		apps.RunMain(func() error {
			return watch(options)
		})
	})

	// firewall
	app.On("allow-ip", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "ip", func(firewall firewalls.FirewallInterface, ip string) error {
				return firewall.AllowSourceIP(ip)
			})
		})
	})
	app.On("drop-ip", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "ip", func(firewall firewalls.FirewallInterface, ip string) error {
				return firewall.DropSourceIP(ip, 0, false)
			})
		})
	})
	app.On("reject-ip", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "ip", func(firewall firewalls.FirewallInterface, ip string) error {
				return firewall.RejectSourceIP(ip, 0)
			})
		})
	})
	app.On("remove-ip", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "ip", func(firewall firewalls.FirewallInterface, ip string) error {
				return firewall.RemoveSourceIP(ip)
			})
		})
	})
	app.On("allow-port", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "port", func(firewall firewalls.FirewallInterface, port string) error {
				return firewall.AllowPort(types.Int(port), option(options, "protocol", "tcp"))
			})
		})
	})
	app.On("remove-port", func() {
		apps.RunMain(func() error {
			return withFirewall(options, "port", func(firewall firewalls.FirewallInterface, port string) error {
				return firewall.RemovePort(types.Int(port), option(options, "protocol", "tcp"))
			})
		})
	})

	app.Run(func() {
		apps.RunMain(func() error {
			return watch(options)
		})
	})
}

// 读取选项的第一个值
func option(options map[string][]string, name string, defaultValue string) string {
	var values = options[name]
	if len(values) == 0 || len(values[0]) == 0 {
		return defaultValue
	}
	return values[0]
}

func parseFamily(name string) (nftables.TableFamily, error) {
	if name == "all" {
		return nlattr.ProtoUnspec, nil
	}
	family, ok := nlattr.ParseProtoFamily(name)
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", nftables.ErrInvalidFamily, name)
	}
	return family, nil
}

func loadConfig() (*configs.NFTConfig, error) {
	config, err := configs.LoadNFTConfig()
	if err != nil {
		return nil, err
	}

	if len(config.LogFile) > 0 {
		sink, err := remotelogs.NewFileSink(config.LogFile)
		if err != nil {
			return nil, err
		}
		remotelogs.SetSink(sink)
	}
	return config, nil
}

func withConn(f func(ctx context.Context, conn *nftables.Conn) error) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	conn, err := nftables.NewConn(nftables.WithTimeout(config.Timeout()))
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	return f(context.Background(), conn)
}

func withApplier(options map[string][]string, f func(ctx context.Context, applier *rulesets.Applier, rulesetConfig *configs.RulesetConfig) error) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	rulesetConfig, err := configs.LoadRulesetConfig(option(options, "ruleset", config.RulesetFile()))
	if err != nil {
		return err
	}

	conn, err := nftables.NewConn(nftables.WithTimeout(config.Timeout()))
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	return f(context.Background(), rulesets.NewApplier(conn).SetMaxRetries(config.MaxRetries), rulesetConfig)
}

func withFirewall(options map[string][]string, name string, f func(firewall firewalls.FirewallInterface, value string) error) error {
	var value = option(options, name, "")
	if len(value) == 0 {
		return errors.New("'--" + name + "' is required")
	}

	_, err := loadConfig()
	if err != nil {
		return err
	}

	var firewall = firewalls.Firewall()
	defer func() {
		_ = firewall.Close()
	}()
	if firewall.IsMock() {
		return errors.New("nftables is not available")
	}

	err = f(firewall, value)
	if err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func list(ctx context.Context, conn *nftables.Conn, family nftables.TableFamily) error {
	tables, err := conn.ListTables(ctx, family)
	if err != nil {
		return err
	}
	chains, err := conn.ListChains(ctx, family)
	if err != nil {
		return err
	}

	for _, table := range tables {
		fmt.Println(table.String())
		for _, chain := range chains {
			if chain.Table != table.Name || chain.Family != table.Family {
				continue
			}
			fmt.Println("  " + chain.String())

			rules, err := conn.ListRules(ctx, chain)
			if err != nil {
				return err
			}
			for _, rule := range rules {
				var line = "    " + rule.String()
				if len(rule.UserData) > 0 {
					line += " # " + strings.TrimSpace(string(rule.UserData))
				}
				fmt.Println(line)
			}
		}
	}
	return nil
}

func watch(options map[string][]string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	var rulesetFile = option(options, "ruleset", "")
	if len(rulesetFile) > 0 {
		config.Ruleset = rulesetFile
	}

	conn, err := nftables.NewConn(nftables.WithTimeout(config.Timeout()))
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var node = nodes.NewNode(conn, config)
	node.ListenSignals(cancel)
	return node.Start(ctx)
}
