// Copyright 2022 Liuxiangchao iwind.liu@gmail.com. All rights reserved.

package nftables

import (
	"errors"
	"fmt"

	"github.com/TeaOSLab/EdgeNFT/internal/firewalls/nftables/nlattr"
	"github.com/iwind/TeaGo/types"
)

const MaxChainNameLength = 255

// ChainHook netfilter hook number
type ChainHook uint32

const (
	ChainHookPrerouting  ChainHook = 0
	ChainHookInput       ChainHook = 1
	ChainHookForward     ChainHook = 2
	ChainHookOutput      ChainHook = 3
	ChainHookPostrouting ChainHook = 4
)

// String hook name, also used for chains created by NewBaseChain
func (this ChainHook) String() string {
	switch this {
	case ChainHookPrerouting:
		return "prerouting"
	case ChainHookInput:
		return "in"
	case ChainHookForward:
		return "forward"
	case ChainHookOutput:
		return "out"
	case ChainHookPostrouting:
		return "postrouting"
	}
	return "hook" + types.String(uint32(this))
}

// ParseChainHook accept hook names of the nft command line and of String()
func ParseChainHook(name string) (ChainHook, bool) {
	switch name {
	case "prerouting":
		return ChainHookPrerouting, true
	case "in", "input":
		return ChainHookInput, true
	case "forward":
		return ChainHookForward, true
	case "out", "output":
		return ChainHookOutput, true
	case "postrouting":
		return ChainHookPostrouting, true
	}
	return 0, false
}

// Common priorities
const (
	ChainPriorityRaw      int32 = -300
	ChainPriorityMangle   int32 = -150
	ChainPriorityDstNat   int32 = -100
	ChainPriorityFilter   int32 = 0
	ChainPrioritySecurity int32 = 50
	ChainPrioritySrcNat   int32 = 100
)

type ChainType string

const (
	ChainTypeFilter ChainType = "filter"
	ChainTypeRoute  ChainType = "route"
	ChainTypeNAT    ChainType = "nat"
)

// Hook attachment point of a base chain
type Hook struct {
	Num      ChainHook
	Priority int32
}

// Chain chain object in table
type Chain struct {
	Name   string
	Table  string
	Family TableFamily

	hook   *Hook
	policy *ChainPolicy
	Type   ChainType // base chains only, "filter" if empty

	// set by listings only
	Handle uint64
	Use    uint32
}

// NewChain regular chain in table, only reachable through jumps
func NewChain(name string, table *Table) *Chain {
	return &Chain{
		Name:   name,
		Table:  table.Name,
		Family: table.Family,
	}
}

// NewBaseChain chain named after its hook, with priority 0
func NewBaseChain(hook ChainHook, table *Table) *Chain {
	return NewChain(hook.String(), table).SetHook(hook, ChainPriorityFilter)
}

func (this *Chain) Kind() ObjectKind {
	return ObjectChain
}

// SetHook attach the chain to a hook, which makes it a base chain
func (this *Chain) SetHook(hook ChainHook, priority int32) *Chain {
	this.hook = &Hook{
		Num:      hook,
		Priority: priority,
	}
	return this
}

func (this *Chain) Hook() (Hook, bool) {
	if this.hook == nil {
		return Hook{}, false
	}
	return *this.hook, true
}

func (this *Chain) IsBaseChain() bool {
	return this.hook != nil
}

// SetPolicy default verdict, base chains only
func (this *Chain) SetPolicy(policy ChainPolicy) error {
	if !this.IsBaseChain() {
		return ErrNotBaseChain
	}
	this.policy = &policy
	return nil
}

// SetType filter, nat or route, used by base chains only
func (this *Chain) SetType(chainType ChainType) *Chain {
	this.Type = chainType
	return this
}

func (this *Chain) Policy() (ChainPolicy, bool) {
	if this.policy == nil {
		return 0, false
	}
	return *this.policy, true
}

func (this *Chain) Ref() ChainRef {
	return ChainRef{
		Table:  this.Table,
		Chain:  this.Name,
		Family: this.Family,
	}
}

func (this *Chain) Validate() error {
	return this.Ref().Validate()
}

func (this *Chain) String() string {
	var s = "chain " + this.Family.String() + " " + this.Table + " " + this.Name
	if this.hook != nil {
		var chainType = this.Type
		if len(chainType) == 0 {
			chainType = ChainTypeFilter
		}
		s += fmt.Sprintf(" { type %s hook %s priority %d", chainType, this.hook.Num, this.hook.Priority)
		if this.policy != nil {
			s += "; policy " + this.policy.String()
		}
		s += " }"
	}
	return s
}

func (this *Chain) nfgenFamily() TableFamily {
	return this.Family
}

func (this *Chain) attributes(op Operation) (*nlattr.AttributeSet, error) {
	err := this.Validate()
	if err != nil {
		return nil, err
	}

	var attrs = nlattr.NewAttributeSet()
	if op == OpFlush {
		return attrs.
			Set(attrRuleTable, nlattr.String(this.Table)).
			Set(attrRuleChain, nlattr.String(this.Name)), nil
	}

	attrs.Set(attrChainTable, nlattr.String(this.Table))
	attrs.Set(attrChainName, nlattr.String(this.Name))
	if op == OpDelete || this.hook == nil {
		return attrs, nil
	}

	attrs.Set(attrChainHook, nlattr.NewAttributeSet().
		Set(attrHookNum, nlattr.U32(this.hook.Num)).
		Set(attrHookPriority, nlattr.U32(uint32(this.hook.Priority))))
	var chainType = this.Type
	if len(chainType) == 0 {
		chainType = ChainTypeFilter
	}
	attrs.Set(attrChainType, nlattr.String(chainType))
	if this.policy != nil {
		attrs.Set(attrChainPolicy, nlattr.U32(*this.policy))
	}
	return attrs, nil
}

func chainFromAttributes(family TableFamily, attrs *nlattr.AttributeSet) (*Chain, error) {
	name, ok := attrs.GetString(attrChainName)
	if !ok {
		return nil, nlattr.Custom(errors.New("chain without name"))
	}
	tableName, _ := attrs.GetString(attrChainTable)
	var chain = &Chain{
		Name:   name,
		Table:  tableName,
		Family: family,
	}
	chain.Handle, _ = attrs.GetU64(attrChainHandle)
	chain.Use, _ = attrs.GetU32(attrChainUse)

	hookAttrs, ok := attrs.GetSet(attrChainHook)
	if ok {
		num, _ := hookAttrs.GetU32(attrHookNum)
		priority, _ := hookAttrs.GetU32(attrHookPriority)
		chain.SetHook(ChainHook(num), int32(priority))

		chainType, _ := attrs.GetString(attrChainType)
		chain.Type = ChainType(chainType)
		policy, ok := attrs.GetU32(attrChainPolicy)
		if ok {
			_ = chain.SetPolicy(ChainPolicy(policy))
		}
	}
	return chain, nil
}
