// Copyright 2024 Liuxiangchao iwind.liu@gmail.com. All rights reserved. Official site: https://goedge.cn .

package rulesets

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/TeaOSLab/EdgeNFT/internal/configs"
	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables"
	"github.com/TeaOSLab/EdgeNFT/internal/remotelogs"
	"github.com/TeaOSLab/EdgeNFT/internal/utils/retries"
	"github.com/iwind/TeaGo/types"
)

const DefaultMaxRetries = 5

// ApplyResult outcome of applying a ruleset
type ApplyResult struct {
	Result     *nftables.Result
	Generation uint32 // ruleset generation after the batch
	CostMs     float64
}

// Applier replace tables in the kernel with the tables of a ruleset
type Applier struct {
	conn       *nftables.Conn
	maxRetries int
}

func NewApplier(conn *nftables.Conn) *Applier {
	return &Applier{
		conn:       conn,
		maxRetries: DefaultMaxRetries,
	}
}

// SetMaxRetries retries of reads interrupted by concurrent ruleset changes
func (this *Applier) SetMaxRetries(maxRetries int) *Applier {
	this.maxRetries = maxRetries
	return this
}

// Apply send the whole ruleset in one batch
func (this *Applier) Apply(ctx context.Context, config *configs.RulesetConfig) (*ApplyResult, error) {
	var before = time.Now()

	batch, err := BuildBatch(config)
	if err != nil {
		return nil, err
	}

	result, err := this.conn.Send(ctx, batch)
	if err != nil {
		this.logFailures(result)
		return &ApplyResult{Result: result}, err
	}

	var applyResult = &ApplyResult{
		Result: result,
		CostMs: time.Since(before).Seconds() * 1000,
	}
	err = retries.Do(ctx, this.maxRetries, nftables.IsRetryable, func() error {
		generation, genErr := this.conn.Generation(ctx)
		if genErr != nil {
			return genErr
		}
		applyResult.Generation = generation
		return nil
	})
	if err != nil {
		remotelogs.Warn("RULESET", "read generation failed: "+err.Error())
	}

	remotelogs.Println("RULESET", "applied "+types.String(len(config.Tables))+" table(s), "+types.String(config.CountRules())+" rule(s), generation "+types.String(applyResult.Generation))
	return applyResult, nil
}

func (this *Applier) logFailures(result *nftables.Result) {
	if result == nil {
		return
	}
	if result.BatchErr != nil {
		remotelogs.Error("RULESET", "batch failed: "+result.BatchErr.Error())
	}
	for _, outcome := range result.Outcomes {
		if outcome.Err != nil {
			remotelogs.Error("RULESET", fmt.Sprintf("%s %s failed: %s", outcome.Entry.Op, outcome.Entry.Object, outcome.Err))
		}
	}
}

// Remove delete all tables of the ruleset, missing tables are skipped
func (this *Applier) Remove(ctx context.Context, config *configs.RulesetConfig) error {
	for _, tableConfig := range config.Tables {
		table, err := BuildTable(tableConfig)
		if err != nil {
			return err
		}
		err = this.conn.DeleteTable(ctx, table.Name, table.Family)
		if err != nil {
			return fmt.Errorf("delete %s failed: %w", table, err)
		}
	}
	return nil
}

// Report difference between a ruleset and the kernel
type Report struct {
	Missing []string // objects of the ruleset not found in the kernel
	Changed []string // chains whose rules differ
}

func (this *Report) InSync() bool {
	return len(this.Missing) == 0 && len(this.Changed) == 0
}

// Verify compare the kernel ruleset with the config, reads are retried on concurrent changes
func (this *Applier) Verify(ctx context.Context, config *configs.RulesetConfig) (*Report, error) {
	var report *Report
	err := retries.Do(ctx, this.maxRetries, nftables.IsRetryable, func() error {
		var err error
		report, err = this.verify(ctx, config)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (this *Applier) verify(ctx context.Context, config *configs.RulesetConfig) (*Report, error) {
	var report = &Report{}

	for _, tableConfig := range config.Tables {
		table, err := BuildTable(tableConfig)
		if err != nil {
			return nil, err
		}
		_, err = this.conn.GetTable(ctx, table.Name, table.Family)
		if err != nil {
			if nftables.IsNotFound(err) {
				report.Missing = append(report.Missing, table.String())
				continue
			}
			return nil, err
		}

		for _, chainConfig := range tableConfig.Chains {
			chain, err := this.conn.GetChain(ctx, table, chainConfig.Name)
			if err != nil {
				if nftables.IsNotFound(err) {
					report.Missing = append(report.Missing, nftables.NewChain(chainConfig.Name, table).String())
					continue
				}
				return nil, err
			}

			rules, err := this.conn.ListRules(ctx, chain)
			if err != nil {
				return nil, err
			}
			if !sameRules(rules, chainConfig.Rules) {
				report.Changed = append(report.Changed, chain.String())
			}
		}
	}
	return report, nil
}

// sameRules rules in the kernel match the rule configs one by one
func sameRules(rules []*nftables.Rule, ruleConfigs []*configs.RuleConfig) bool {
	if len(rules) != len(ruleConfigs) {
		return false
	}
	for index, rule := range rules {
		if !bytes.Equal(rule.UserData, RuleUserData(ruleConfigs[index])) {
			return false
		}
	}
	return true
}
