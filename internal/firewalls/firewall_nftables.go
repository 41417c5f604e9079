// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package firewalls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	teaconst "github.com/TeaOSLab/EdgeNFT/internal/const"
	teaerrors "github.com/TeaOSLab/EdgeNFT/internal/errors"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/expr"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/TeaOSLab/EdgeNFT/internal/goman"
	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
	"github.com/TeaOSLab/EdgeNFT/internal/utils/retries"
	"github.com/TeaOSLab/EdgeNFT/internal/zero"
)

// user data of rules managed by the firewall
const (
	ruleUserDataPrefix = "edge-fw:"
	ruleUserDataLo     = ruleUserDataPrefix + "lo"
)

func allowIPUserData(ip string) []byte {
	return []byte(ruleUserDataPrefix + "allow:" + ip)
}

func denyIPUserData(ip string) []byte {
	return []byte(ruleUserDataPrefix + "deny:" + ip)
}

func portUserData(port int, protocol string) []byte {
	return []byte(ruleUserDataPrefix + "port:" + portKey(port, protocol))
}

type blockIPItem struct {
	action         string
	ip             string
	timeoutSeconds int
}

// NFTablesFirewall allow and deny rules in a table of its own
// Layout of the input chain: the 'lo' rule, allowed ports and IPs, then denied IPs.
// Temporary bans are rules too, they are deleted by a background task when they expire.
type NFTablesFirewall struct {
	BaseFirewall

	conn       *nftables.Conn
	table      *nftables.Table
	chain      *nftables.Chain
	maxRetries int
	isReady    bool

	expiration  *Expiration
	dropIPQueue chan *blockIPItem

	quitChan  chan zero.Zero
	closeOnce sync.Once

	updateLocker sync.Mutex
}

// NewNFTablesFirewall create the table and chain of the firewall if they are missing
func NewNFTablesFirewall(conn *nftables.Conn, config *configs.NFTConfig) (*NFTablesFirewall, error) {
	if config == nil {
		config = configs.DefaultNFTConfig()
	}

	var tableName = config.Firewall.Table
	if len(tableName) == 0 {
		tableName = teaconst.DefaultTableName
	}
	var familyName = config.Firewall.Family
	if len(familyName) == 0 {
		familyName = "inet"
	}
	family, ok := nlattr.ParseProtoFamily(familyName)
	if !ok || family == nlattr.ProtoUnspec {
		return nil, fmt.Errorf("%w: '%s'", nftables.ErrInvalidFamily, familyName)
	}

	var table = nftables.NewTable(tableName, family)
	var firewall = &NFTablesFirewall{
		conn:        conn,
		table:       table,
		chain:       nftables.NewChain("input", table).SetHook(nftables.ChainHookInput, nftables.ChainPriorityFilter),
		maxRetries:  config.MaxRetries,
		expiration:  NewExpiration(),
		dropIPQueue: make(chan *blockIPItem, 4096),
		quitChan:    make(chan zero.Zero),
	}
	err := firewall.init()
	if err != nil {
		return nil, err
	}
	return firewall, nil
}

func (this *NFTablesFirewall) init() error {
	var ctx = context.Background()

	err := this.table.Validate()
	if err != nil {
		return err
	}
	_ = this.chain.SetPolicy(nftables.ChainPolicyAccept)

	var batch = nftables.NewBatch()
	_, err = batch.Add(this.table, nftables.OpEnsure)
	if err != nil {
		return err
	}
	_, err = batch.Add(this.chain, nftables.OpEnsure)
	if err != nil {
		return err
	}
	_, err = this.conn.Send(ctx, batch)
	if err != nil {
		return teaerrors.Errorf("create %s failed: %w", this.chain, err)
	}

	// allow lo
	_, err = this.findRule(ctx, []byte(ruleUserDataLo))
	if err != nil {
		if !nftables.IsNotFound(err) {
			return teaerrors.Errorf("get 'lo' rule failed: %w", err)
		}
		var rule = nftables.NewRule(this.chain).Iif("lo").Accept()
		rule.UserData = []byte(ruleUserDataLo)
		err = this.conn.Commit(ctx, rule, nftables.OpAdd)
		if err != nil {
			return teaerrors.Errorf("add 'lo' rule failed: %w", err)
		}
	}

	this.isReady = true

	goman.New(func() {
		for {
			select {
			case ipItem := <-this.dropIPQueue:
				switch ipItem.action {
				case "drop":
					err := this.DropSourceIP(ipItem.ip, ipItem.timeoutSeconds, false)
					if err != nil {
						remotelogs.Warn("NFTABLES", "drop ip '"+ipItem.ip+"' failed: "+err.Error())
					}
				}
			case <-this.quitChan:
				return
			}
		}
	})

	goman.New(func() {
		var ticker = time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_, err := this.PurgeExpired()
				if err != nil {
					remotelogs.Warn("NFTABLES", "purge expired ips failed: "+err.Error())
				}
			case <-this.quitChan:
				return
			}
		}
	})

	return nil
}

// Name 名称
func (this *NFTablesFirewall) Name() string {
	return "nftables"
}

// IsReady 是否已准备被调用
func (this *NFTablesFirewall) IsReady() bool {
	return this.isReady
}

// IsMock 是否为模拟
func (this *NFTablesFirewall) IsMock() bool {
	return false
}

// Table table holding the rules of the firewall
func (this *NFTablesFirewall) Table() *nftables.Table {
	return this.table
}

// AllowPort 允许端口
func (this *NFTablesFirewall) AllowPort(port int, protocol string) error {
	proto, err := parsePort(port, protocol)
	if err != nil {
		return err
	}

	var rule = nftables.NewRule(this.chain).DPort(uint16(port), proto).Accept()
	rule.UserData = portUserData(port, protocol)
	return this.addRuleOnce(context.Background(), rule, true)
}

// RemovePort 删除端口
func (this *NFTablesFirewall) RemovePort(port int, protocol string) error {
	_, err := parsePort(port, protocol)
	if err != nil {
		return err
	}
	return this.deleteRule(context.Background(), portUserData(port, protocol))
}

// AllowSourceIP Allow把IP加入白名单
func (this *NFTablesFirewall) AllowSourceIP(ip string) error {
	data, err := parseIP(ip)
	if err != nil {
		return err
	}

	var ctx = context.Background()
	err = this.deleteRule(ctx, denyIPUserData(ip))
	if err != nil {
		return err
	}
	this.expiration.Remove(ip)

	rule, err := newSourceIPRule(this.chain, data, acceptVerdict)
	if err != nil {
		return err
	}
	rule.UserData = allowIPUserData(ip)
	return this.addRuleOnce(ctx, rule, true)
}

// RejectSourceIP 拒绝某个源IP连接
func (this *NFTablesFirewall) RejectSourceIP(ip string, timeoutSeconds int) error {
	return this.blockIP(ip, timeoutSeconds, true)
}

// DropSourceIP 丢弃某个源IP数据
func (this *NFTablesFirewall) DropSourceIP(ip string, timeoutSeconds int, async bool) error {
	_, err := parseIP(ip)
	if err != nil {
		return err
	}

	// 避免短时间内重复添加
	if async && this.checkLatestIP(ip) {
		return nil
	}

	if async {
		select {
		case this.dropIPQueue <- &blockIPItem{
			action:         "drop",
			ip:             ip,
			timeoutSeconds: timeoutSeconds,
		}:
		default:
			return teaerrors.New("drop ip queue is full")
		}
		return nil
	}

	return this.blockIP(ip, timeoutSeconds, false)
}

// RemoveSourceIP 删除某个源IP
func (this *NFTablesFirewall) RemoveSourceIP(ip string) error {
	_, err := parseIP(ip)
	if err != nil {
		return err
	}

	var ctx = context.Background()
	err = this.deleteRule(ctx, denyIPUserData(ip))
	if err != nil {
		return err
	}
	this.expiration.Remove(ip)
	return this.deleteRule(ctx, allowIPUserData(ip))
}

// PurgeExpired delete rules of bans expired by now
func (this *NFTablesFirewall) PurgeExpired() (count int, err error) {
	var ctx = context.Background()
	for _, ip := range this.expiration.PopExpired(time.Now()) {
		deleteErr := this.deleteRule(ctx, denyIPUserData(ip))
		if deleteErr != nil {
			err = errors.Join(err, fmt.Errorf("remove '%s': %w", ip, deleteErr))
			continue
		}
		count++
	}
	return
}

// Close stop background tasks and close the connection
func (this *NFTablesFirewall) Close() error {
	var err error
	this.closeOnce.Do(func() {
		close(this.quitChan)
		err = this.conn.Close()
	})
	return err
}

// blockIP deny ip with a drop or reject rule, timeoutSeconds 0 bans forever
func (this *NFTablesFirewall) blockIP(ip string, timeoutSeconds int, reject bool) error {
	data, err := parseIP(ip)
	if err != nil {
		return err
	}

	var ctx = context.Background()
	var userData = denyIPUserData(ip)

	this.updateLocker.Lock()
	defer this.updateLocker.Unlock()

	var verdict = expr.VerdictDrop
	if reject {
		verdict = expr.VerdictReject
	}

	existing, err := this.findRule(ctx, userData)
	switch {
	case err == nil && existing.VerDict() == verdict:
		// keep the rule, only the expiration changes
	case err == nil:
		err = this.conn.Commit(ctx, existing, nftables.OpDelete)
		if err != nil {
			return err
		}
		fallthrough
	case nftables.IsNotFound(err):
		var verdictExpr = dropVerdict
		if reject {
			verdictExpr = rejectVerdict
		}
		rule, err := newSourceIPRule(this.chain, data, verdictExpr)
		if err != nil {
			return err
		}
		rule.UserData = userData
		err = this.conn.Commit(ctx, rule, nftables.OpAdd)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if timeoutSeconds > 0 {
		this.expiration.Add(ip, time.Now().Add(time.Duration(timeoutSeconds)*time.Second))
	} else {
		this.expiration.Remove(ip)
	}
	return nil
}

// addRuleOnce add rule unless a rule with the same user data exists
// Rules with first set are placed right after the 'lo' rule, others are appended.
func (this *NFTablesFirewall) addRuleOnce(ctx context.Context, rule *nftables.Rule, first bool) error {
	this.updateLocker.Lock()
	defer this.updateLocker.Unlock()

	var loHandle uint64
	var hasLo = false
	err := retries.Do(ctx, this.maxRetries, nftables.IsRetryable, func() error {
		rules, err := this.conn.ListRules(ctx, this.chain)
		if err != nil {
			return err
		}
		for _, existing := range rules {
			if bytes.Equal(existing.UserData, rule.UserData) {
				return errRuleExists
			}
			if bytes.Equal(existing.UserData, []byte(ruleUserDataLo)) {
				loHandle, hasLo = existing.Handle()
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errRuleExists) {
			return nil
		}
		return err
	}

	if first && hasLo {
		rule.SetPosition(loHandle)
	}
	return this.conn.Commit(ctx, rule, nftables.OpAdd)
}

var errRuleExists = errors.New("rule exists")

// deleteRule delete the rule with user data, a missing rule is not an error
func (this *NFTablesFirewall) deleteRule(ctx context.Context, userData []byte) error {
	rule, err := this.findRule(ctx, userData)
	if err != nil {
		if nftables.IsNotFound(err) {
			return nil
		}
		return err
	}
	err = this.conn.Commit(ctx, rule, nftables.OpDelete)
	if err != nil && nftables.IsNotFound(err) {
		return nil
	}
	return err
}

func (this *NFTablesFirewall) findRule(ctx context.Context, userData []byte) (*nftables.Rule, error) {
	var rule *nftables.Rule
	err := retries.Do(ctx, this.maxRetries, nftables.IsRetryable, func() error {
		var err error
		rule, err = this.conn.GetRuleWithUserData(ctx, this.chain, userData)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// IsManagedRule check whether the rule was added by the firewall
func IsManagedRule(rule *nftables.Rule) bool {
	return bytes.HasPrefix(rule.UserData, []byte(ruleUserDataPrefix))
}
